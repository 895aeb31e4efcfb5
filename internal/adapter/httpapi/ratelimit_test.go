package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewRateLimiter(2, time.Minute)
	r.now = func() time.Time { return now }

	assert.True(t, r.Allow("a"))
	assert.True(t, r.Allow("a"))
	assert.False(t, r.Allow("a"))
	assert.True(t, r.Allow("b"), "keys are independent")

	now = now.Add(time.Minute)
	assert.True(t, r.Allow("a"), "window resets")
}

func TestRateLimiter_PrunesExpiredWindows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewRateLimiter(1, time.Second)
	r.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		r.Allow(k)
	}
	now = now.Add(2 * time.Second)
	r.Allow("d")
	assert.Len(t, r.hits, 1)
}

func TestRateLimiter_DisabledAndNil(t *testing.T) {
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("a"))

	r := NewRateLimiter(0, time.Minute)
	for range 100 {
		require.True(t, r.Allow("a"))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	lim := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.Use(Recover())
	r.POST("/login", lim.Middleware(), Wrap(func(c *gin.Context, _ *auth.Principal) (Reply, error) {
		return OK(gin.H{"ok": true}), nil
	}))

	rec, env := do(t, r, http.MethodPost, "/login", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = do(t, r, http.MethodPost, "/login", "", nil)
	requireError(t, rec, env, http.StatusTooManyRequests, apperr.CodeRateLimitExceeded)
}

// loginFrom posts a bad login from the test recorder's fixed remote address
// with the given X-Forwarded-For header.
func loginFrom(h http.Handler, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_AuthLimitIgnoresForwardedFor(t *testing.T) {
	e := newTestEnv(t, func(d *Deps) { d.AuthLimiter = NewRateLimiter(2, time.Hour) })

	var codes []int
	for i := range 5 {
		codes = append(codes, loginFrom(e.h, "1.2.3."+strconv.Itoa(i)))
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestRouter_AuthLimitTrustsConfiguredProxy(t *testing.T) {
	e := newTestEnv(t, func(d *Deps) {
		d.AuthLimiter = NewRateLimiter(2, time.Hour)
		d.TrustedProxies = []string{"192.0.2.1"} // httptest remote address
	})

	for i := range 5 {
		assert.Equal(t, http.StatusUnauthorized, loginFrom(e.h, "1.2.3."+strconv.Itoa(i)))
	}
}
