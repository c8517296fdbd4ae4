// Package apierr renders the uniform JSON error envelope.
package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realty/catalog/internal/models"
)

// Error codes carried in the envelope's "error" field.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeUnavailable  = "service_unavailable"
	CodeInternal     = "internal_error"
)

// Body is the JSON error envelope.
type Body struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

// Abort writes the envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Body{Message: message, Error: code})
}

// Validation reports err as a 400 when it is a *models.ValidationError and
// returns true; otherwise it does nothing and returns false.
func Validation(c *gin.Context, err error) bool {
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, Body{
		Message: verr.Error(),
		Error:   CodeValidation,
		Field:   verr.Field,
	})
	return true
}

// NotFound writes a 404 envelope.
func NotFound(c *gin.Context, message string) {
	Abort(c, http.StatusNotFound, CodeNotFound, message)
}

// Internal records err on the context for the request logger and writes a
// 500, or a 503 when the request ran out of time.
func Internal(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, context.DeadlineExceeded) {
		Abort(c, http.StatusServiceUnavailable, CodeUnavailable, "Сервис временно недоступен")
		return
	}
	Abort(c, http.StatusInternalServerError, CodeInternal, "Ошибка сервера")
}
