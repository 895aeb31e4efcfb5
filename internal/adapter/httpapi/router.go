package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
)

// HealthChecker reports whether the backing store answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the router.
type Deps struct {
	Items    Items
	Accounts Accounts
	Verifier auth.Verifier
	Health   HealthChecker
	Log      *slog.Logger
	// AuthLimiter throttles the /api/auth endpoints. Nil disables it.
	AuthLimiter *RateLimiter
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty trusts none and uses the remote address.
	TrustedProxies []string
}

// NewRouter builds the gin engine. Each route runs the stages in order:
// RequestLogger, Recover, Authenticate, RequireRoles, then the handler.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		d.Log.Warn("invalid trusted proxies, trusting none", slog.Any("error", err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(RequestLogger(d.Log), Recover())

	notFound := func(c *gin.Context) { fail(c, apperr.Classify(apperr.NotFound("route"))) }
	r.NoRoute(notFound)
	r.NoMethod(notFound)

	r.GET("/healthz", Wrap(health(d.Health)))

	required := Authenticate(d.Verifier, Required)
	optional := Authenticate(d.Verifier, Optional)

	api := r.Group("/api")
	api.GET("/me", required, Wrap(me))

	ih := itemHandlers{items: d.Items}
	items := api.Group("/items")
	items.GET("", optional, Wrap(ih.list))
	items.GET("/:id", optional, Wrap(ih.get))
	items.POST("", required, Wrap(ih.create))
	items.PATCH("/:id", required, Wrap(ih.update))
	items.DELETE("/:id", required, RequireRoles(auth.RoleAdmin), Wrap(ih.delete))

	ah := accountHandlers{accounts: d.Accounts}
	accounts := api.Group("/auth", d.AuthLimiter.Middleware())
	accounts.POST("/register", Wrap(ah.register))
	accounts.POST("/login", Wrap(ah.login))
	accounts.POST("/refresh", Wrap(ah.refresh))

	return r
}

func health(h HealthChecker) Handler {
	return func(c *gin.Context, _ *auth.Principal) (Reply, error) {
		if h != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := h.Ping(ctx); err != nil {
				return Reply{}, apperr.NewStoreError("", "store unreachable", err)
			}
		}
		return OK(gin.H{"status": "ok"}), nil
	}
}
