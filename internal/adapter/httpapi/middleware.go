package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
)

// AuthMode selects how Authenticate treats a missing or bad credential.
type AuthMode int

const (
	// Required rejects the request with 401.
	Required AuthMode = iota
	// Optional lets the request through without a principal.
	Optional
)

// RequestLogger logs one line per request after the rest of the chain ran.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("dur", time.Since(start)),
		}
		if p := PrincipalOf(c); p != nil {
			attrs = append(attrs, slog.String("principal", p.ID))
		}
		if code := c.GetString(ctxKeyCode); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		if err := c.Errors.Last(); err != nil {
			attrs = append(attrs, slog.Any("error", err.Err))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			log.Info("request rejected", attrs...)
		default:
			log.Debug("request", attrs...)
		}
	}
}

// Recover turns a panic into an error envelope. Error values are classified
// like returned errors; anything else is UNKNOWN_ERROR.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			fail(c, apperr.ClassifyValue(rec))
		}()
		c.Next()
	}
}

// Authenticate verifies the bearer credential and stores the principal on
// the request. Verification failures always answer UNAUTHORIZED whatever
// the verifier reported, so provider codes never leak through this stage.
func Authenticate(v auth.Verifier, mode AuthMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.Authenticate(c.Request.Context(), v, c.GetHeader("Authorization"))
		if err == nil {
			setPrincipal(c, p)
			c.Next()
			return
		}
		if mode == Optional {
			c.Next()
			return
		}

		sentinel := apperr.ErrInvalidCredentials
		if errors.Is(err, apperr.ErrMissingCredentials) {
			sentinel = apperr.ErrMissingCredentials
		}
		cls := apperr.Classify(sentinel)
		cls.Cause = err
		fail(c, cls)
	}
}

// RequireRoles admits only principals holding one of roles. It must run
// after Authenticate.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Authorize(PrincipalOf(c), roles...); err != nil {
			fail(c, apperr.Classify(err))
			return
		}
		c.Next()
	}
}

const ctxKeyPrincipal = "httpapi.principal"

func setPrincipal(c *gin.Context, p *auth.Principal) {
	c.Set(ctxKeyPrincipal, p)
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}

// PrincipalOf returns the authenticated principal of the request or nil.
func PrincipalOf(c *gin.Context) *auth.Principal {
	if v, ok := c.Get(ctxKeyPrincipal); ok {
		if p, ok := v.(*auth.Principal); ok {
			return p
		}
	}
	return nil
}
