// Package apperr defines the application's failure taxonomy and the
// classifier that turns any failure into a stable (code, message, status)
// triple for the JSON error envelope.
//
// # Tagged variants
//
// Collaborators wrap their failures at the boundary into one of a closed set
// of types instead of leaking driver- or SDK-specific shapes:
//
//   - *ValidationError: request schema failures with field-level issues
//   - *ProviderError: errors reported by the external auth provider
//   - *StoreError: errors reported by a data store (SQLSTATE or PostgREST codes)
//   - *Error: application errors carrying an explicit Code
//   - ErrMissingCredentials, ErrInvalidCredentials, ErrForbidden: auth failures
//
// # Classification
//
// Classify checks the variants in a fixed order and returns the first match:
//
//	Priority | Variant            | Result
//	---------|--------------------|--------------------------------------
//	1        | *ValidationError   | VALIDATION_ERROR / 400
//	2        | *ProviderError     | provider table, AUTH_ERROR / 401 fallback
//	3        | *StoreError        | driver table, DATABASE_ERROR / 500 fallback
//	4        | auth sentinels     | UNAUTHORIZED / 401, FORBIDDEN / 403
//	5        | *Error             | its code and the code's status
//	6        | other error        | INTERNAL_ERROR / 500, message passed through
//	7        | nil / non-error    | UNKNOWN_ERROR / 500
//
// The order matters only when a chain wraps more than one variant; the
// earlier entry wins.
//
// Example:
//
//	item, err := repo.Get(ctx, id)
//	if err != nil {
//	    c := apperr.Classify(err)
//	    // c.Code == apperr.CodeNotFound when the store reported PGRST116
//	}
//
// The original error is always available as Classification.Cause for
// logging. Clients must branch on Code only.
package apperr
