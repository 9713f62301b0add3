// errors.go - Structured error responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lvillar/actapdf"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for a missing or invalid field.
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
		Field:   field,
	}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInternalError creates a 500 error.
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// FromRenderError maps the errors of the render engine to API errors.
func FromRenderError(err error) *APIError {
	var (
		ce *actapdf.ConfigurationError
		te *actapdf.TemplateError
		ee *actapdf.EncodingError
	)
	switch {
	case errors.Is(err, actapdf.ErrUnknownProfile) && errors.As(err, &ce):
		return NewNotFoundError("profile", ce.Profile)
	case errors.Is(err, actapdf.ErrInvalidRecord):
		return NewBadRequestError("invalid record", err)
	case errors.As(err, &ee):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "UNSUPPORTED_CHARACTER",
			Message: fmt.Sprintf("character %U cannot be printed with the form font", ee.Rune),
			Field:   ee.Field,
		}
	case errors.As(err, &te) && errors.Is(err, actapdf.ErrTemplateNotFound):
		return NewNotFoundError("template", te.Template)
	case errors.As(err, &te):
		return &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "TEMPLATE_ERROR",
			Message: fmt.Sprintf("template %s is not usable", te.Template),
			Details: err.Error(),
		}
	}
	return NewInternalError("failed to generate PDF", err)
}

// ErrorHandler writes errors returned by handlers as APIError JSON.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = FromRenderError(err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	if jerr := c.JSON(apiErr.Status, apiErr); jerr != nil {
		c.Logger().Error(jerr)
	}
}
