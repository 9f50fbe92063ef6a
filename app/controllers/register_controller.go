package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/app/repository"
	"github.com/oggatonama/oggatonama/internal/pkg/apperr"
	"github.com/oggatonama/oggatonama/internal/pkg/usercontext"
)

// HandleListReports returns the active reports, newest first. The optional
// division, district and age query parameters narrow the result the same way
// the search page does; an absent or "All" value matches everything.
func HandleListReports(c *fiber.Ctx) error {
	reports, err := repository.GetGlobalFactory().GetReportRepository().List()
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	filter, err := filterFromQuery(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	reports = filter.Apply(reports)

	out := make([]fiber.Map, 0, len(reports))
	for i := range reports {
		out = append(out, reportResponse(&reports[i]))
	}
	return c.JSON(fiber.Map{
		"reports": out,
		"count":   len(out),
	})
}

// HandleGetReport returns a single report by its public id.
func HandleGetReport(c *fiber.Ctx) error {
	report, err := repository.GetGlobalFactory().GetReportRepository().GetByUUID(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, storeError(err, "Report not found"))
	}
	return c.JSON(fiber.Map{"report": reportResponse(report)})
}

// HandleCreateReport stores a new sighting. The reporter identity comes from
// the bearer token, never from the form.
func HandleCreateReport(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	division := strings.TrimSpace(c.FormValue("division"))
	district := strings.TrimSpace(c.FormValue("district"))
	locationDetail := strings.TrimSpace(c.FormValue("locationDetail"))
	if division == "" && district == "" {
		// older clients send one combined field
		division, district, locationDetail = splitLocation(c.FormValue("foundLocation"))
	}

	ageRaw := strings.TrimSpace(c.FormValue("age"))
	gender := strings.TrimSpace(c.FormValue("gender"))
	height := strings.TrimSpace(c.FormValue("height"))
	clothing := strings.TrimSpace(c.FormValue("clothing"))

	if division == "" || district == "" || ageRaw == "" || gender == "" || height == "" || clothing == "" {
		return apperr.Respond(c, apperr.Validation("Missing required fields"))
	}
	age, err := strconv.Atoi(ageRaw)
	if err != nil || age < 0 {
		return apperr.Respond(c, apperr.Validation("Age must be a non-negative number"))
	}

	var photoURL, thumbURL string
	if file, ferr := c.FormFile("photo"); ferr == nil && file != nil {
		photoURL, thumbURL, err = storeUploadedPhoto(c)
		if err != nil {
			return apperr.Respond(c, err)
		}
	}

	report := models.NewReport(division, district, locationDetail, age, gender, height, clothing, photoURL, uctx.Name, uctx.Contact)
	report.ThumbnailURL = thumbURL

	if err := repository.GetGlobalFactory().GetReportRepository().Create(report); err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	log.Infof("report %s created by user %d", report.UUID, uctx.UserID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       report.UUID,
		"photoUrl": report.PhotoURL,
	})
}

// HandleClaimReport queues the authenticated user as a claimant. A repeated
// claim by the same user is a no-op that still returns the current report.
func HandleClaimReport(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	reports := repository.GetGlobalFactory().GetReportRepository()

	report, err := reports.GetByUUID(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, storeError(err, "Report not found"))
	}

	if !report.HasClaimant(uctx.Name) {
		if err := reports.RequestClaim(report.ID, uctx.Name); err != nil {
			return apperr.Respond(c, storeError(err, "Report not found"))
		}
	}

	// re-read so the response reflects the state after the transition,
	// including claims that raced in alongside ours
	report, err = reports.GetByUUID(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, storeError(err, "Report not found"))
	}
	return c.JSON(fiber.Map{"report": reportResponse(report)})
}

// HandleApproveReport lets the original reporter close out a pending report.
// On success the report leaves the active set.
func HandleApproveReport(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	reports := repository.GetGlobalFactory().GetReportRepository()

	report, err := reports.GetByUUID(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, storeError(err, "Report not found"))
	}

	if !report.IsReporter(uctx.Name) {
		return apperr.Respond(c, apperr.Authorization("Only the reporter can approve a claim"))
	}
	if report.Status != models.StatusPending || len(report.ClaimRequests) == 0 {
		return apperr.Respond(c, apperr.InvalidState("Report has no pending claim to approve"))
	}

	if err := reports.Resolve(report.ID); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			// someone else changed the report between our read and the
			// conditional update; answer from the fresh state
			if _, rerr := reports.GetByUUID(c.Params("id")); errors.Is(rerr, gorm.ErrRecordNotFound) {
				return apperr.Respond(c, apperr.NotFound("Report not found"))
			}
			return apperr.Respond(c, apperr.InvalidState("Report has no pending claim to approve"))
		}
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	log.Infof("report %s resolved by reporter %q", report.UUID, uctx.Name)

	return c.JSON(fiber.Map{"message": "Claim approved, report resolved"})
}

// filterFromQuery builds a ReportFilter from the list query parameters. Age
// arrives as a decade range such as "40-49"; "100+" names the open-ended top
// bucket.
func filterFromQuery(c *fiber.Ctx) (models.ReportFilter, error) {
	filter := models.ReportFilter{
		Division:  c.Query("division"),
		District:  c.Query("district"),
		AgeBucket: models.AllAges,
	}

	ageParam := strings.TrimSpace(c.Query("age"))
	if ageParam == "" || strings.EqualFold(ageParam, "All") {
		return filter, nil
	}
	if ageParam == "100+" {
		filter.AgeBucket = 100
		return filter, nil
	}

	lower, upper, ranged := strings.Cut(ageParam, "-")
	bucket, err := strconv.Atoi(lower)
	if err != nil || bucket < 0 || bucket%10 != 0 || bucket >= 100 {
		return filter, apperr.Validation("Invalid age range")
	}
	if ranged {
		hi, err := strconv.Atoi(upper)
		if err != nil || hi != bucket+9 {
			return filter, apperr.Validation("Invalid age range")
		}
	}
	filter.AgeBucket = bucket
	return filter, nil
}
