// Package respond writes JSON responses and error envelopes for gin handlers.
package respond

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/apperr"
)

const genericBackendMessage = "Something went wrong. Please try again."

type APIError struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// Error classifies err and writes the matching status and envelope.
// Backend errors are logged with their cause; the client only sees the
// service-provided message or a generic retry hint.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := APIError{Code: kind.String()}

	appErr, ok := apperr.As(err)
	if ok {
		body.Message = appErr.Message
		body.Fields = appErr.Fields
	}

	switch kind {
	case apperr.KindBackend:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		if body.Message == "" {
			body.Message = genericBackendMessage
		} else {
			body.Message += ". Please try again."
		}
	case apperr.KindConfiguration:
		slog.ErrorContext(c.Request.Context(), "service misconfigured", "path", c.FullPath(), "error", err)
	default:
		if body.Message == "" {
			body.Message = err.Error()
		}
	}

	c.AbortWithStatusJSON(kind.Status(), ErrorEnvelope{Error: body})
}

// BadRequest writes a validation envelope for malformed input that never reached a service.
func BadRequest(c *gin.Context, msg string) {
	Error(c, apperr.Validation(msg))
}
