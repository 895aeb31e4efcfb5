package supabase

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"api-go-template/internal/apperr"
)

// gotrueError covers both the current and the legacy GoTrue error bodies.
type gotrueError struct {
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	WeakPassword     *struct {
		Reasons []string `json:"reasons"`
	} `json:"weak_password"`
}

// authError decodes a non-2xx GoTrue response into *apperr.ProviderError.
func authError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ge gotrueError
	_ = json.Unmarshal(body, &ge)

	code := ge.ErrorCode
	if code == "" && len(ge.Code) > 0 {
		var s string
		if json.Unmarshal(ge.Code, &s) == nil {
			code = s
		}
	}
	if code == "" && ge.WeakPassword != nil {
		code = "weak_password"
	}
	if code == "" && ge.Error == "invalid_grant" && strings.Contains(strings.ToLower(ge.ErrorDescription), "invalid login credentials") {
		code = "invalid_credentials"
	}
	if code == "" {
		code = ge.Error
	}

	msg := firstNonEmpty(ge.Msg, ge.Message, ge.ErrorDescription)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &apperr.ProviderError{Status: resp.StatusCode, Code: code, Message: msg}
}

type postgrestError struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

// restError decodes a non-2xx PostgREST response into *apperr.StoreError.
func restError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var pe postgrestError
	if err := json.Unmarshal(body, &pe); err != nil || (pe.Code == "" && pe.Message == "") {
		return apperr.NewStoreError("", "postgrest: status "+strconv.Itoa(resp.StatusCode), nil)
	}
	se := apperr.NewStoreError(pe.Code, pe.Message, nil)
	if pe.Details != nil {
		se.Detail = *pe.Details
	}
	if pe.Hint != nil {
		se.Hint = *pe.Hint
	}
	return se
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
