// Package handlers provides the HTTP handlers of the catalog API.
//
// This file defines the response helpers shared by all endpoints. Errors that
// belong to the shared taxonomy are forwarded to middleware.ErrorResponder;
// the few failures a handler answers itself go through fail(), which writes
// the same envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "status": "Fail",
//	  "code": "missing_fields",
//	  "message": "All fields are required!!"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-catalog-api/internal/http/middleware"
)

// MessageResponse is the confirmation body of create, update and delete.
type MessageResponse struct {
	Message string `json:"message" example:"Successfully updated"`
}

// fail answers the request directly with the error envelope. 5xx responses
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	middleware.WriteError(c, status, code, msg)
}

// forward hands err to the central error responder.
func forward(c *gin.Context, err error) { middleware.Forward(c, err) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func message(c *gin.Context, status int, msg string) {
	ok(c, status, MessageResponse{Message: msg})
}
