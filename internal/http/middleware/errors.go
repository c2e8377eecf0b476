// Package middleware – central error responder.
//
// Handlers and middleware never write error bodies for forwarded failures.
// They call Forward (c.Error + Abort) and ErrorResponder, which wraps the
// whole chain, turns the last forwarded error into the JSON envelope:
//
//	{ "request_id": "...", "status": "Fail", "code": "not_found", "message": "Product not found" }
//
// Operational errors (*apperr.Error) surface their status and message
// verbatim. Everything else is answered with 500 "Internal Server Error"; the
// detail stays in the log.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-catalog-api/internal/apperr"
)

const genericMessage = "Internal Server Error"

// ErrorResponse is the JSON envelope for every error answered by the API.
type ErrorResponse struct {
	RequestID string `json:"request_id" example:"b3c1f7b2-8a7e-4c0e-9f1f-2a1f3c4d5e6f"`
	Status    string `json:"status"     example:"Fail"`
	Code      string `json:"code"       example:"not_found"`
	Message   string `json:"message"    example:"Product not found"`
}

// ErrorResponder answers the last error forwarded with c.Error once the rest
// of the chain has returned, unless a response was already written.
//
// Each answered error is logged with its name, message, status code, status
// class and stack trace.
func ErrorResponder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		code := apperr.StatusCode(err)

		name := "Error"
		if ae, ok := apperr.As(err); ok {
			name = ae.Name()
		}

		lg := LoggerFrom(c)
		var ev *zerolog.Event
		if code >= 500 {
			ev = lg.Error()
		} else {
			ev = lg.Warn()
		}
		ev.Stack().Err(err).
			Str("name", name).
			Int("status_code", code).
			Str("status", apperr.StatusClass(code)).
			Msg("request failed")

		if !apperr.IsOperational(err) {
			WriteError(c, http.StatusInternalServerError, "internal_error", genericMessage)
			return
		}
		ae, _ := apperr.As(err)
		WriteError(c, code, errorCode(ae), ae.Message)
	}
}

// Forward hands err to the ErrorResponder and stops the chain.
func Forward(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// WriteError writes the error envelope with the given status and aborts.
func WriteError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: RequestIDFrom(c),
		Status:    apperr.StatusClass(status),
		Code:      code,
		Message:   msg,
	})
}

// errorCode maps an operational error to a stable snake_case code.
func errorCode(e *apperr.Error) string {
	if e.Kind != apperr.KindApp {
		return string(e.Kind)
	}
	switch e.Code {
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	}
	return string(apperr.KindApp)
}
