package controllers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/oggatonama/oggatonama/app/repository"
	"github.com/oggatonama/oggatonama/internal/pkg/apperr"
	"github.com/oggatonama/oggatonama/internal/pkg/storage"
	"github.com/oggatonama/oggatonama/internal/pkg/token"
	"github.com/oggatonama/oggatonama/internal/pkg/upload"
	"github.com/oggatonama/oggatonama/internal/pkg/usercontext"
)

// HandleGetProfile returns the authenticated user's account.
func HandleGetProfile(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uctx.UserID)
	if err != nil {
		return apperr.Respond(c, storeError(err, "User not found"))
	}
	return c.JSON(fiber.Map{"user": userResponse(user)})
}

// HandleUpdateProfile merges the supplied profile fields (name, contact,
// photo). The response carries a re-issued token with the extended expiry so
// the SPA keeps the refreshed identity.
func HandleUpdateProfile(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	var fields repository.ProfileUpdate
	if v := c.FormValue("fullName"); v != "" {
		fields.FullName = &v
	}
	if v := c.FormValue("contactNumber"); v != "" {
		fields.ContactNumber = &v
	}

	if file, err := c.FormFile("photo"); err == nil && file != nil {
		photoURL, _, err := storeUploadedPhoto(c)
		if err != nil {
			return apperr.Respond(c, err)
		}
		fields.PhotoURL = &photoURL
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.UpdateProfile(uctx.UserID, fields)
	if err != nil {
		return apperr.Respond(c, storeError(err, "User not found"))
	}

	tok, err := token.Sign(user.ID, user.FullName, user.Email, user.ContactNumber, token.ExtendedTTL)
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	return c.JSON(fiber.Map{
		"token": tok,
		"user":  userResponse(user),
	})
}

// storeUploadedPhoto validates and persists the "photo" multipart file,
// returning the public URLs of the original and its thumbnail. A non-nil
// error is already taxonomy-typed.
func storeUploadedPhoto(c *fiber.Ctx) (string, string, error) {
	file, err := c.FormFile("photo")
	if err != nil {
		return "", "", apperr.Validation("Photo upload is malformed")
	}

	src, err := file.Open()
	if err != nil {
		return "", "", apperr.Upstream(err, "Failed to read uploaded photo")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", "", apperr.Upstream(err, "Failed to read uploaded photo")
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if _, err := upload.ValidateImageBySniff(file.Filename, head); err != nil {
		return "", "", apperr.Validation("%s", err.Error())
	}

	photoURL, thumbURL, err := storage.GetStore().Save(c.Context(), file.Filename, data)
	if err != nil {
		log.Errorf("photo upload failed: %v", err)
		return "", "", apperr.Upstream(err, "Failed to store uploaded photo")
	}
	return photoURL, thumbURL, nil
}
