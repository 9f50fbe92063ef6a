package controllers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/app/repository"
	"github.com/oggatonama/oggatonama/internal/pkg/apperr"
	"github.com/oggatonama/oggatonama/internal/pkg/jobqueue"
	"github.com/oggatonama/oggatonama/internal/pkg/token"
)

type signUpRequest struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	NIDNumber     string `json:"nidNumber"`
	ContactNumber string `json:"contactNumber"`
	Password      string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// HandleSignUp registers a new account and issues a bearer token.
func HandleSignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("Invalid request body"))
	}

	users := repository.GetGlobalFactory().GetUserRepository()

	// unique natural keys, checked before insert
	if _, err := users.GetByEmail(req.Email); err == nil {
		return apperr.Respond(c, apperr.Conflict("email", "Email already registered"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}
	if _, err := users.GetByNID(req.NIDNumber); err == nil {
		return apperr.Respond(c, apperr.Conflict("nidNumber", "NID number already registered"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	user, err := models.CreateUser(req.FullName, req.Email, req.NIDNumber, req.ContactNumber, req.Password)
	if err != nil {
		return apperr.Respond(c, apperr.Validation("%s", validationMessage(err)))
	}

	if err := users.Create(user); err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	tok, err := token.Sign(user.ID, user.FullName, user.Email, user.ContactNumber, token.DefaultTTL)
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": tok,
		"user":  userResponse(user),
	})
}

// HandleSignIn verifies credentials and issues a bearer token.
func HandleSignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("Invalid request body"))
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByEmail(req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		// same answer for unknown account and wrong password
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	tok, err := token.Sign(user.ID, user.FullName, user.Email, user.ContactNumber, token.DefaultTTL)
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	return c.JSON(fiber.Map{
		"token": tok,
		"user":  userResponse(user),
	})
}

// HandleForgotPassword stores a short-lived verification code and mails it.
// The response is identical whether or not the account exists.
func HandleForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("Invalid request body"))
	}

	const answer = "If an account exists, a verification code has been sent."

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("forgot-password lookup failed: %v", err)
		}
		return c.JSON(fiber.Map{"message": answer})
	}

	code, err := user.GenerateResetCode()
	if err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}
	if err := users.Update(user); err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	// delivery is fire-and-forget; failures retry inside the queue
	jobqueue.EnqueueResetMail(user.Email, code)

	return c.JSON(fiber.Map{"message": answer})
}

// HandleResetPassword completes a reset: code must match and be unexpired.
func HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Validation("Invalid request body"))
	}
	if len(req.NewPassword) < 6 {
		return apperr.Respond(c, apperr.Validation("Password must be at least 6 characters"))
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByEmail(req.Email)
	if err != nil || !user.IsResetCodeValid(req.Code) {
		return apperr.Respond(c, apperr.Validation("Invalid or expired verification code"))
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}
	user.ClearResetCode()

	if err := users.Update(user); err != nil {
		return apperr.Respond(c, apperr.Upstream(err, "Server error"))
	}

	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

// userFieldNames maps User struct fields to the JSON names the SPA sends.
var userFieldNames = map[string]string{
	"FullName":      "fullName",
	"Email":         "email",
	"NIDNumber":     "nidNumber",
	"ContactNumber": "contactNumber",
	"Password":      "password",
	"PhotoURL":      "photoUrl",
}

// validationMessage keeps validator/bcrypt internals out of client responses:
// the first failed rule is rephrased against the JSON field name instead of
// leaking Go struct paths like "User.NIDNumber".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := userFieldNames[fe.Field()]
		if field == "" {
			field = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "email":
			return fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", field)
		}
	}

	msg := err.Error()
	if len(msg) > 200 {
		return "Invalid registration data"
	}
	return msg
}
