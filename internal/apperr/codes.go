package apperr

import "net/http"

// Code is a stable, machine-facing error code. Clients branch on it; the
// accompanying message is display text only.
type Code string

// The closed set of codes produced by Classify.
const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeDuplicateKey         Code = "DUPLICATE_KEY"
	CodeForeignKeyViolation  Code = "FOREIGN_KEY_VIOLATION"
	CodeNotNullViolation     Code = "NOT_NULL_VIOLATION"
	CodeUndefinedTable       Code = "UNDEFINED_TABLE"
	CodeUndefinedColumn      Code = "UNDEFINED_COLUMN"
	CodeRLSPolicyViolation   Code = "RLS_POLICY_VIOLATION"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeEmailNotConfirmed    Code = "EMAIL_NOT_CONFIRMED"
	CodeUserAlreadyExists    Code = "USER_ALREADY_EXISTS"
	CodeWeakPassword         Code = "WEAK_PASSWORD"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeRefreshTokenNotFound Code = "REFRESH_TOKEN_NOT_FOUND"
	CodeInternal             Code = "INTERNAL_ERROR"
	CodeUnknown              Code = "UNKNOWN_ERROR"
	CodeAuth                 Code = "AUTH_ERROR"
	CodeDatabase             Code = "DATABASE_ERROR"
)

// codeInfo holds the canonical status and default message of a code.
type codeInfo struct {
	status  int
	message string
}

var codes = map[Code]codeInfo{
	CodeValidation:           {http.StatusBadRequest, "validation failed"},
	CodeUnauthorized:         {http.StatusUnauthorized, "authentication required"},
	CodeForbidden:            {http.StatusForbidden, "you do not have permission to perform this action"},
	CodeNotFound:             {http.StatusNotFound, "resource not found"},
	CodeDuplicateKey:         {http.StatusConflict, "resource already exists"},
	CodeForeignKeyViolation:  {http.StatusInternalServerError, "related resource not found"},
	CodeNotNullViolation:     {http.StatusInternalServerError, "required field is missing"},
	CodeUndefinedTable:       {http.StatusInternalServerError, "table not found"},
	CodeUndefinedColumn:      {http.StatusInternalServerError, "column not found"},
	CodeRLSPolicyViolation:   {http.StatusForbidden, "access denied by row level security policy"},
	CodeInvalidCredentials:   {http.StatusUnauthorized, "email or password is incorrect"},
	CodeEmailNotConfirmed:    {http.StatusUnauthorized, "email address is not confirmed"},
	CodeUserAlreadyExists:    {http.StatusUnauthorized, "this email address is already registered"},
	CodeWeakPassword:         {http.StatusUnauthorized, "password is too weak, use at least 8 characters"},
	CodeRateLimitExceeded:    {http.StatusTooManyRequests, "rate limit exceeded, try again later"},
	CodeSessionNotFound:      {http.StatusUnauthorized, "session not found, sign in again"},
	CodeRefreshTokenNotFound: {http.StatusUnauthorized, "refresh token not found"},
	CodeInternal:             {http.StatusInternalServerError, "internal server error"},
	CodeUnknown:              {http.StatusInternalServerError, "an unknown error occurred"},
	CodeAuth:                 {http.StatusUnauthorized, "authentication error"},
	CodeDatabase:             {http.StatusInternalServerError, "database error"},
}

// Status returns the canonical HTTP status for the code.
// Codes outside the closed set map to 500.
func (c Code) Status() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Message returns the default display message for the code.
func (c Code) Message() string {
	if info, ok := codes[c]; ok {
		return info.message
	}
	return codes[CodeUnknown].message
}

// Known reports whether c belongs to the closed set.
func (c Code) Known() bool {
	_, ok := codes[c]
	return ok
}

// String implements fmt.Stringer.
func (c Code) String() string { return string(c) }

// providerCodes maps auth-provider error codes to application codes.
var providerCodes = map[string]Code{
	"invalid_credentials":        CodeInvalidCredentials,
	"email_not_confirmed":        CodeEmailNotConfirmed,
	"user_already_exists":        CodeUserAlreadyExists,
	"weak_password":              CodeWeakPassword,
	"over_email_send_rate_limit": CodeRateLimitExceeded,
	"over_request_rate_limit":    CodeRateLimitExceeded,
	"session_not_found":          CodeSessionNotFound,
	"refresh_token_not_found":    CodeRefreshTokenNotFound,
}

// Store error codes that carry meaning outside the driver tables.
const (
	// SQLStateUniqueViolation is the SQLSTATE of a unique constraint violation.
	SQLStateUniqueViolation = "23505"
	// SQLStateForeignKeyViolation is the SQLSTATE of a foreign key violation.
	SQLStateForeignKeyViolation = "23503"
	// SQLStateNotNullViolation is the SQLSTATE of a not-null violation.
	SQLStateNotNullViolation = "23502"
	// NoRowsCode is the missing-row signal. Every store reports an absent row with it.
	NoRowsCode = "PGRST116"
)

// storeCodes maps SQLSTATE and PostgREST codes to application codes.
var storeCodes = map[string]Code{
	SQLStateUniqueViolation:     CodeDuplicateKey,
	SQLStateForeignKeyViolation: CodeForeignKeyViolation,
	SQLStateNotNullViolation:    CodeNotNullViolation,
	"42P01":                     CodeUndefinedTable,
	"42703":                     CodeUndefinedColumn,
	NoRowsCode:                  CodeNotFound,
	"PGRST301":                  CodeRLSPolicyViolation,
	"42501":                     CodeRLSPolicyViolation,
}
