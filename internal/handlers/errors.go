package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"comparador/internal/apperr"
	"comparador/internal/security"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Unwrap() error {
	return apperr.ErrValidation
}

// newValidator returns a validator that also understands the passwordbytes tag: a length
// check in bytes, since bcrypt's limit is on bytes rather than runes.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("passwordbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= security.MaxPasswordBytes
	})
	return v
}

// bindAndValidate parses the request body into dst and runs the struct validation tags.
func bindAndValidate(c *fiber.Ctx, validate *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", apperr.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationFailure(err)
	}
	return nil
}

func validationFailure(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &ValidationError{Fields: errorMessages}
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, apperr.ErrInvalidCredentials), errors.Is(err, apperr.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrInvalidToken), errors.Is(err, apperr.ErrExpiredToken),
		errors.Is(err, apperr.ErrInvalidFormat), errors.Is(err, apperr.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler or middleware. Only storage faults and
// unexpected errors are logged; the rest are ordinary user-facing outcomes.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusOf(err)
		body := fiber.Map{"message": messageOf(err, status)}

		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			body["errors"] = ve.Fields
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		default:
			body["error"] = err.Error()
		}
		return c.Status(status).JSON(body)
	}
}

func messageOf(err error, status int) string {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return "Registration failed"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return "Authentication failed"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "Login required"
	case errors.Is(err, apperr.ErrInvalidToken), errors.Is(err, apperr.ErrExpiredToken):
		return "Password reset failed"
	case errors.Is(err, apperr.ErrInvalidFormat):
		return "Invalid database file"
	case errors.Is(err, apperr.ErrValidation):
		return "Validation failed"
	case errors.Is(err, apperr.ErrForbidden):
		return "Access denied"
	case errors.Is(err, apperr.ErrNotFound):
		return "Not found"
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return "Service temporarily unavailable"
	}
	if status < fiber.StatusInternalServerError {
		return fiber.ErrBadRequest.Message
	}
	return "Internal server error"
}
