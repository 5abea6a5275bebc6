// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by all endpoints: the error
// envelope, fail and failErr for error responses, and ok/noContent for
// success responses.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-hub/internal/http/middleware"
	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/services"
	"github.com/tbourn/character-hub/internal/snapshot"
	"github.com/tbourn/character-hub/internal/store"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code"`
	// Human-readable message (safe to show to users)
	Message string `json:"message"`
}

// fail aborts the request with a structured error. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	respond(c, status, code, msg)
}

func respond(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// classify maps an error from the service layer to a status and code.
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var perr *provider.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, snapshot.ErrInvalidFormat):
		return http.StatusBadRequest, ErrCodeInvalidFormat
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrMessageTooLong):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, services.ErrNoParticipants), errors.Is(err, services.ErrNotRegenerable):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, services.ErrUnsupportedFormat):
		return http.StatusBadRequest, ErrCodeUnsupportedFormat
	case errors.Is(err, services.ErrImportTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, ErrCodeTooLarge
	case errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusNotFound, ErrCodeUnknownProvider
	case errors.Is(err, provider.ErrMissingAPIKey):
		return http.StatusBadRequest, ErrCodeMissingAPIKey
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrCodeProviderUnavailable
	case errors.As(err, &perr):
		return http.StatusBadGateway, ErrCodeProviderFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// failErr writes the envelope for err. 5xx errors are logged with their
// cause; a plain 500 gets a generic message.
func failErr(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).
			Int("status", status).
			Str("code", code).
			Msg("api error")
	}
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	respond(c, status, code, msg)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
