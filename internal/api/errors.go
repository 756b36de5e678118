package api

import (
	"errors"
	"net/http"

	"streamline/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Error is the JSON error envelope returned by every endpoint.
type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func NewValidationError(message string, details map[string]any) *Error {
	return &Error{Code: "VALIDATION_ERROR", Message: message, Details: details, HTTPStatus: http.StatusBadRequest}
}

func NewInternalError(cause error) *Error {
	return &Error{Code: "INTERNAL_ERROR", Message: "internal server error", HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// toError maps any handler error onto the envelope.
func toError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		for _, fe := range validationErrs {
			details[fe.Field()] = fe.Tag()
		}
		return NewValidationError("invalid query", details)
	}

	if errors.Is(err, metrics.ErrTeamRequired) {
		return NewValidationError(err.Error(), map[string]any{"team": "required"})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := "HTTP_ERROR"
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case fiber.StatusRequestTimeout:
			code = "TIMEOUT"
		}
		return &Error{Code: code, Message: fiberErr.Message, HTTPStatus: fiberErr.Code}
	}

	return NewInternalError(err)
}
