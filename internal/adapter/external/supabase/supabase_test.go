package supabase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func reply(status int, body string, header ...string) *http.Response {
	h := http.Header{"Content-Type": {"application/json"}}
	for i := 0; i+1 < len(header); i += 2 {
		h.Set(header[i], header[i+1])
	}
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(strings.NewReader(body))}
}

func newTestClient(t *testing.T, rt rtFunc) *Client {
	t.Helper()
	c, err := New(Config{
		URL:            "https://proj.supabase.test/",
		AnonKey:        "anon",
		ServiceRoleKey: "service",
		RESTRetries:    1,
		Transport:      rt,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Config{AnonKey: "anon"}, nil)
	assert.Error(t, err)
	_, err = New(Config{URL: "https://x.test"}, nil)
	assert.Error(t, err)
	_, err = New(Config{URL: "not a url", AnonKey: "anon"}, nil)
	assert.Error(t, err)
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		return reply(200, `{"id":"u1","email":"a@b.c","app_metadata":{"role":"admin"},"user_metadata":{"name":"Ann"}}`), nil
	})

	u, err := c.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "admin", u.AppMetadata["role"])

	p, err := auth.NewSessionVerifier(c).Verify(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Role)
	assert.Equal(t, "Ann", p.Claims["name"])
}

func TestGetUser_InvalidTokenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return reply(503, `{"msg":"unavailable"}`), nil
	})

	_, err := c.GetUser(context.Background(), "t")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 503, pe.Status)
}

func TestAuthErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   string
		want   apperr.Code
	}{
		{"error_code", 400, `{"code":400,"error_code":"email_not_confirmed","msg":"Email not confirmed"}`, "email_not_confirmed", apperr.CodeEmailNotConfirmed},
		{"string code", 422, `{"code":"user_already_exists","message":"User already registered"}`, "user_already_exists", apperr.CodeUserAlreadyExists},
		{"weak password body", 422, `{"msg":"Password should be at least 6 characters","weak_password":{"reasons":["length"]}}`, "weak_password", apperr.CodeWeakPassword},
		{"legacy invalid grant", 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, "invalid_credentials", apperr.CodeInvalidCredentials},
		{"rate limit", 429, `{"error_code":"over_email_send_rate_limit","msg":"slow down"}`, "over_email_send_rate_limit", apperr.CodeRateLimitExceeded},
		{"unmapped", 400, `{"error_code":"bad_jwt","msg":"invalid JWT"}`, "bad_jwt", apperr.CodeAuth},
		{"not json", 502, `<html>`, "", apperr.CodeAuth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				return reply(tc.status, tc.body), nil
			})
			_, err := c.SignInWithPassword(context.Background(), "a@b.c", "pw")

			var pe *apperr.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.code, pe.Code)
			assert.Equal(t, tc.status, pe.Status)
			assert.NotEmpty(t, pe.Message)
			assert.Equal(t, tc.want, apperr.Classify(err).Code)
		})
	}
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.c", body["email"])
		return reply(200, `{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600,"user":{"id":"u1","email":"a@b.c"}}`), nil
	})

	s, err := c.SignInWithPassword(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, 3600, s.ExpiresIn)
	assert.Equal(t, "u1", s.User.ID)
}

func TestRefreshSession(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		return reply(200, `{"access_token":"at2","refresh_token":"rt2","token_type":"bearer","expires_in":3600,"user":{"id":"u1"}}`), nil
	})

	s, err := c.RefreshSession(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "rt2", s.RefreshToken)
}

func TestSignUp(t *testing.T) {
	t.Run("session", func(t *testing.T) {
		c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"name": "Ann"}, body["data"])
			return reply(200, `{"access_token":"at","user":{"id":"u1","email":"a@b.c"}}`), nil
		})
		s, err := c.SignUp(context.Background(), "a@b.c", "pw", map[string]any{"name": "Ann"})
		require.NoError(t, err)
		assert.Equal(t, "at", s.AccessToken)
		assert.Equal(t, "u1", s.User.ID)
	})

	t.Run("confirmation required", func(t *testing.T) {
		c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
			return reply(200, `{"id":"u2","email":"b@b.c","user_metadata":{"name":"Bo"}}`), nil
		})
		s, err := c.SignUp(context.Background(), "b@b.c", "pw", nil)
		require.NoError(t, err)
		assert.Empty(t, s.AccessToken)
		assert.Equal(t, "u2", s.User.ID)
		assert.Equal(t, "Bo", s.User.UserMetadata["name"])
	})
}

func TestSelect_CountAndFilters(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/rest/v1/items", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eq.u1", q.Get("owner_id"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "10", q.Get("offset"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "service", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		return reply(206, `[{"id":"a"},{"id":"b"}]`, "Content-Range", "10-11/25"), nil
	})

	var rows []struct{ ID string }
	total, err := c.Select(context.Background(), "items", Query{
		Filters: url.Values{"owner_id": {"eq.u1"}},
		Order:   "created_at.desc",
		Limit:   10,
		Offset:  10,
		Count:   true,
	}, &rows)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, rows, 2)
}

func TestSelect_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return reply(503, `{}`), nil
		}
		return reply(200, `[]`), nil
	})

	var rows []map[string]any
	_, err := c.Select(context.Background(), "items", Query{}, &rows)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSingle_NotFound(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, objectMediaType, r.Header.Get("Accept"))
		return reply(406, `{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`), nil
	})

	var row map[string]any
	_, err := c.Select(context.Background(), "items", Query{Single: true, Filters: url.Values{"id": {"eq.x"}}}, &row)

	var se *apperr.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PGRST116", se.Code)
	assert.Equal(t, "The result contains 0 rows", se.Detail)
	assert.Equal(t, apperr.CodeNotFound, apperr.Classify(err).Code)
}

func TestInsert_DuplicateKey(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		return reply(409, `{"code":"23505","details":"Key (id)=(x) already exists.","hint":null,"message":"duplicate key value violates unique constraint"}`), nil
	})

	err := c.Insert(context.Background(), "items", map[string]string{"id": "x"}, nil)
	c2 := apperr.Classify(err)
	assert.Equal(t, apperr.CodeDuplicateKey, c2.Code)
	assert.Equal(t, http.StatusConflict, c2.Status)
}

func TestUpdateAndDelete(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		assert.Equal(t, "eq.i1", r.URL.Query().Get("id"))
		return reply(200, `{"id":"i1","name":"new"}`), nil
	})

	var row struct{ Name string }
	require.NoError(t, c.Update(context.Background(), "items", url.Values{"id": {"eq.i1"}}, map[string]string{"name": "new"}, &row))
	assert.Equal(t, "new", row.Name)
	require.NoError(t, c.Delete(context.Background(), "items", url.Values{"id": {"eq.i1"}}))
	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, methods)
}

func TestRESTError_Unparseable(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return reply(400, `oops`), nil
	})
	err := c.Delete(context.Background(), "items", url.Values{"id": {"eq.x"}})
	assert.Equal(t, apperr.CodeDatabase, apperr.Classify(err).Code)
}

func TestContentRangeTotal(t *testing.T) {
	n, err := contentRangeTotal("*/0")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = contentRangeTotal("0-9/*")
	assert.Error(t, err)
	_, err = contentRangeTotal("")
	assert.Error(t, err)
}
