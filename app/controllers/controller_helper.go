package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/internal/pkg/apperr"
)

// reportResponse is the JSON shape the SPA consumes. foundLocation keeps the
// legacy combined form alongside the structured fields.
func reportResponse(r *models.Report) fiber.Map {
	return fiber.Map{
		"id":              r.UUID,
		"division":        r.Division,
		"district":        r.District,
		"locationDetail":  r.LocationDetail,
		"foundLocation":   joinLocation(r.Division, r.District, r.LocationDetail),
		"age":             r.Age,
		"gender":          r.Gender,
		"height":          r.Height,
		"clothing":        r.Clothing,
		"photo":           r.PhotoURL,
		"thumbnail":       r.ThumbnailURL,
		"reporterName":    r.ReporterName,
		"reporterContact": r.ReporterContact,
		"status":          r.Status,
		"claimRequests":   r.ClaimantNames(),
		"createdAt":       r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func userResponse(u *models.User) fiber.Map {
	return fiber.Map{
		"id":            u.ID,
		"fullName":      u.FullName,
		"email":         u.Email,
		"nidNumber":     u.NIDNumber,
		"contactNumber": u.ContactNumber,
		"photoUrl":      u.PhotoURL,
		"createdAt":     u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func joinLocation(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// splitLocation parses the legacy "Division, District, detail" form.
func splitLocation(combined string) (division, district, detail string) {
	parts := strings.SplitN(combined, ",", 3)
	if len(parts) > 0 {
		division = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		district = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		detail = strings.TrimSpace(parts[2])
	}
	return
}

// storeError maps repository failures onto the error taxonomy.
func storeError(err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s", notFoundMsg)
	}
	return apperr.Upstream(err, "Server error")
}
