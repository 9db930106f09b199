// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response helpers shared by every endpoint: the error
// envelope, the mapping from service errors to status codes, and the small
// writers for JSON and empty success responses.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "invalid_input",
//	  "message": "Invalid time format. Use HH:mm (e.g., 14:30)"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/elderly-care-backend/internal/http/middleware"
	"github.com/tbourn/elderly-care-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"invalid_input"`
	// Human-readable message, shown next to the form field by clients
	Message string `json:"message" example:"Please enter a time"`
}

// fail aborts the request with an ErrorResponse. Server errors are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService maps a service error to a response. Validation failures carry
// their inline message; unknown errors become 500 with fallbackCode.
func failService(c *gin.Context, err error, fallbackCode string) {
	var ie *services.InputError
	switch {
	case errors.As(err, &ie):
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, ie.Error())
	case errors.Is(err, services.ErrNoteNotFound),
		errors.Is(err, services.ErrPatientInfoNotFound),
		errors.Is(err, services.ErrScheduleNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
