package supabase

import (
	"context"
	"net/http"

	"api-go-template/internal/auth"
	"api-go-template/internal/platform/httpclient"
)

// Session is a GoTrue session. It is empty apart from User when signup
// requires email confirmation.
type Session struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int              `json:"expires_in"`
	User         auth.SessionUser `json:"user"`
}

var _ auth.UserFetcher = (*Client)(nil)

// GetUser resolves an access token into the user it was issued to.
func (c *Client) GetUser(ctx context.Context, token string) (*auth.SessionUser, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodGet, c.authURL("/user"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var u auth.SessionUser
	if err := c.doAuth(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignUp registers an email/password user. metadata lands in user_metadata.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, c.authURL("/signup"), body)
	if err != nil {
		return nil, err
	}

	// with autoconfirm off GoTrue answers with the bare user
	var out struct {
		Session
		auth.SessionUser
	}
	if err := c.doAuth(req, &out); err != nil {
		return nil, err
	}
	s := out.Session
	if s.User.ID == "" {
		s.User = out.SessionUser
	}
	return &s, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) token(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, c.authURL("/token?grant_type="+grant), body)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := c.doAuth(req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) doAuth(req *http.Request, out any) error {
	resp, err := c.auth.Do(req.Context(), req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return authError(resp)
	}
	return httpclient.DecodeJSON(resp, out)
}
