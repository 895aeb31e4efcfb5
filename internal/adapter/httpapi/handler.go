package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
)

// Reply is a successful handler result.
type Reply struct {
	// Status defaults to 200.
	Status int
	Data   any
}

// OK replies 200 with data.
func OK(data any) Reply { return Reply{Status: http.StatusOK, Data: data} }

// Created replies 201 with data.
func Created(data any) Reply { return Reply{Status: http.StatusCreated, Data: data} }

// Handler is a business handler. The principal is nil on unauthenticated
// requests.
type Handler func(c *gin.Context, p *auth.Principal) (Reply, error)

// Wrap adapts h to gin, writing exactly one envelope per request.
func Wrap(h Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := h(c, PrincipalOf(c))
		if err != nil {
			fail(c, apperr.Classify(err))
			return
		}
		status := r.Status
		if status == 0 {
			status = http.StatusOK
		}
		success(c, status, r.Data)
	}
}

// bindJSON decodes the request body into dst. Malformed JSON is a
// validation failure.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required", nil)
		}
		return apperr.Validation("request body is not valid JSON", nil)
	}
	return nil
}
