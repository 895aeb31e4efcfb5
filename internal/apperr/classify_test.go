package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-go-template/internal/apperr"
)

func TestClassify_StoreCodes(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		want   apperr.Code
		status int
	}{
		{"unique violation", "23505", apperr.CodeDuplicateKey, http.StatusConflict},
		{"foreign key violation", "23503", apperr.CodeForeignKeyViolation, http.StatusInternalServerError},
		{"not null violation", "23502", apperr.CodeNotNullViolation, http.StatusInternalServerError},
		{"undefined table", "42P01", apperr.CodeUndefinedTable, http.StatusInternalServerError},
		{"undefined column", "42703", apperr.CodeUndefinedColumn, http.StatusInternalServerError},
		{"missing row", "PGRST116", apperr.CodeNotFound, http.StatusNotFound},
		{"postgrest policy", "PGRST301", apperr.CodeRLSPolicyViolation, http.StatusForbidden},
		{"insufficient privilege", "42501", apperr.CodeRLSPolicyViolation, http.StatusForbidden},
		{"unmapped", "40001", apperr.CodeDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serr := &apperr.StoreError{Code: tt.code, Message: "driver says no"}
			got := apperr.Classify(fmt.Errorf("insert item: %w", serr))

			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.status, got.Status)
			assert.Same(t, serr, got.Details)
			assert.NotEqual(t, "driver says no", got.Message)
		})
	}
}

func TestClassify_ProviderCodes(t *testing.T) {
	tests := []struct {
		code   string
		want   apperr.Code
		status int
	}{
		{"invalid_credentials", apperr.CodeInvalidCredentials, http.StatusUnauthorized},
		{"email_not_confirmed", apperr.CodeEmailNotConfirmed, http.StatusUnauthorized},
		{"user_already_exists", apperr.CodeUserAlreadyExists, http.StatusUnauthorized},
		{"weak_password", apperr.CodeWeakPassword, http.StatusUnauthorized},
		{"over_email_send_rate_limit", apperr.CodeRateLimitExceeded, http.StatusTooManyRequests},
		{"over_request_rate_limit", apperr.CodeRateLimitExceeded, http.StatusTooManyRequests},
		{"session_not_found", apperr.CodeSessionNotFound, http.StatusUnauthorized},
		{"refresh_token_not_found", apperr.CodeRefreshTokenNotFound, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := apperr.Classify(&apperr.ProviderError{Status: 400, Code: tt.code, Message: "raw"})
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestClassify_UnmappedProviderKeepsMessage(t *testing.T) {
	got := apperr.Classify(&apperr.ProviderError{Status: 400, Code: "otp_expired", Message: "token has expired"})

	assert.Equal(t, apperr.CodeAuth, got.Code)
	assert.Equal(t, http.StatusUnauthorized, got.Status)
	assert.Equal(t, "token has expired", got.Message)
}

func TestClassify_Validation(t *testing.T) {
	verr := &apperr.ValidationError{Issues: []apperr.FieldIssue{
		{Field: "name", Tag: "min", Param: "1", Message: "must be at least 1 characters"},
	}}

	got := apperr.Classify(apperr.Wrap(verr, "create item"))

	assert.Equal(t, apperr.CodeValidation, got.Code)
	assert.Equal(t, http.StatusBadRequest, got.Status)
	issues, ok := got.Details.([]apperr.FieldIssue)
	require.True(t, ok)
	require.Len(t, issues, 1)
	assert.Equal(t, "name", issues[0].Field)
}

func TestClassify_AuthSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   apperr.Code
		status int
	}{
		{"missing", apperr.ErrMissingCredentials, apperr.CodeUnauthorized, http.StatusUnauthorized},
		{"invalid", apperr.Mark(errors.New("token is expired"), apperr.ErrInvalidCredentials), apperr.CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", apperr.ErrForbidden, apperr.CodeForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apperr.Classify(tt.err)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.status, got.Status)
			assert.NotContains(t, got.Message, "expired")
		})
	}
}

func TestClassify_ApplicationError(t *testing.T) {
	got := apperr.Classify(apperr.NotFound("item"))
	assert.Equal(t, apperr.CodeNotFound, got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "item not found", got.Message)

	got = apperr.Classify(apperr.New(apperr.Code("SOMETHING_ELSE"), ""))
	assert.Equal(t, apperr.CodeInternal, got.Code)
}

func TestClassify_GenericAndUnknown(t *testing.T) {
	got := apperr.Classify(errors.New("boom"))
	assert.Equal(t, apperr.CodeInternal, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "boom", got.Message)

	got = apperr.Classify(nil)
	assert.Equal(t, apperr.CodeUnknown, got.Code)

	got = apperr.ClassifyValue("not an error")
	assert.Equal(t, apperr.CodeUnknown, got.Code)
	assert.Equal(t, apperr.CodeUnknown.Message(), got.Message)
	require.Error(t, got.Cause)

	got = apperr.ClassifyValue(errors.New("panic as error"))
	assert.Equal(t, apperr.CodeInternal, got.Code)
}

func TestClassify_DispatchOrder(t *testing.T) {
	// A chain wrapping both a provider and a store failure resolves to the provider entry.
	both := errors.Join(
		&apperr.StoreError{Code: "23505"},
		&apperr.ProviderError{Status: 429, Code: "over_request_rate_limit"},
	)
	assert.Equal(t, apperr.CodeRateLimitExceeded, apperr.Classify(both).Code)

	// Validation outranks everything.
	withValidation := errors.Join(&apperr.StoreError{Code: "23505"}, &apperr.ValidationError{})
	assert.Equal(t, apperr.CodeValidation, apperr.Classify(withValidation).Code)
}

func TestClassify_IsPure(t *testing.T) {
	inputs := []error{
		&apperr.StoreError{Code: "23505"},
		&apperr.StoreError{Code: "PGRST116"},
		&apperr.ProviderError{Code: "weak_password"},
		errors.New("x"),
		nil,
	}
	for _, in := range inputs {
		first := apperr.Classify(in)
		for i := 0; i < 5; i++ {
			again := apperr.Classify(in)
			assert.Equal(t, first.Code, again.Code)
			assert.Equal(t, first.Status, again.Status)
		}
	}
}

type panickyErr struct{ inner *string }

func (p *panickyErr) Error() string { return *p.inner }

func TestClassify_NeverPanics(t *testing.T) {
	var typedNil *apperr.StoreError
	assert.NotPanics(t, func() { apperr.Classify(typedNil) })

	assert.NotPanics(t, func() {
		got := apperr.Classify(&panickyErr{})
		assert.Equal(t, apperr.CodeInternal, got.Code)
		assert.Equal(t, apperr.CodeInternal.Message(), got.Message)
	})
}

func TestStoreError_UnwrapsCause(t *testing.T) {
	cause := errors.New("sql: no rows in result set")
	err := apperr.NoRows(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperr.NoRowsCode, err.Code)
}

func TestMark(t *testing.T) {
	base := errors.New("signature is invalid")
	marked := apperr.Mark(base, apperr.ErrInvalidCredentials)

	assert.ErrorIs(t, marked, base)
	assert.ErrorIs(t, marked, apperr.ErrInvalidCredentials)
	assert.Same(t, marked, apperr.Mark(marked, apperr.ErrInvalidCredentials))
	assert.Equal(t, apperr.ErrForbidden, apperr.Mark(nil, apperr.ErrForbidden))
}

func TestCode_StatusAndMessage(t *testing.T) {
	assert.Equal(t, http.StatusConflict, apperr.CodeDuplicateKey.Status())
	assert.Equal(t, http.StatusInternalServerError, apperr.Code("NOPE").Status())
	assert.False(t, apperr.Code("NOPE").Known())
	assert.Equal(t, apperr.CodeUnknown.Message(), apperr.Code("NOPE").Message())
}
