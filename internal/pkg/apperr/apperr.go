package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an application error into the HTTP-facing taxonomy.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindAuthorization
	KindInvalidState
	KindUpstream
)

// Error is an application error carrying its taxonomy kind. Conflict errors
// additionally name the violated field so clients can highlight it.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a dependency failure. The wrapped error is kept for logs;
// only the sanitized message reaches the client.
func Upstream(err error, message string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// HTTPStatus maps an error to its response status code. Errors outside the
// taxonomy are treated as upstream failures.
func HTTPStatus(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return fiber.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation, KindConflict:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindInvalidState:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond writes the JSON error body for err. Every failure surfaces as a
// single human-readable "error" string; unclassified errors are sanitized.
func Respond(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)

	var ae *Error
	if !errors.As(err, &ae) {
		return c.Status(status).JSON(fiber.Map{"error": "Server error"})
	}

	body := fiber.Map{"error": ae.Message}
	if ae.Field != "" {
		body["field"] = ae.Field
	}
	return c.Status(status).JSON(body)
}
