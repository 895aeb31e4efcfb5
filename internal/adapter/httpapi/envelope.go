// Package httpapi serves the JSON API over gin. Every response body is an
// envelope: {"success":true,"data":...} or {"success":false,"error":{...}}.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"api-go-template/internal/apperr"
)

// SuccessEnvelope wraps a handler result.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorBody is the error part of ErrorEnvelope.
type ErrorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

// ErrorEnvelope wraps a classified failure.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ctxKeyCode holds the error code of a failed request for the access log.
const ctxKeyCode = "httpapi.code"

func success(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessEnvelope{Success: true, Data: data})
}

// fail writes the error envelope of cls and stops the chain. The cause is
// recorded on the context for RequestLogger.
func fail(c *gin.Context, cls apperr.Classification) {
	c.Set(ctxKeyCode, string(cls.Code))
	if cls.Cause != nil {
		_ = c.Error(cls.Cause)
	}
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(cls.Status, ErrorEnvelope{
		Error: ErrorBody{Code: cls.Code, Message: cls.Message, Details: cls.Details},
	})
}
