package apperr

import (
	"errors"
	"fmt"
)

// Classification is the result of classifying a failure.
type Classification struct {
	Code    Code
	Message string
	Status  int
	// Details is serialized into the envelope.
	Details any
	// Cause is the original failure, kept for logs only.
	Cause error
}

// Classify maps err to a stable code, message and HTTP status.
//
// Dispatch order, first match wins:
//  1. *ValidationError
//  2. *ProviderError
//  3. *StoreError
//  4. ErrMissingCredentials, ErrInvalidCredentials, ErrForbidden
//  5. *Error
//  6. any other error: INTERNAL_ERROR with the error text
//
// A nil error classifies as UNKNOWN_ERROR. Classify is pure and never panics.
func Classify(err error) Classification {
	if err == nil {
		return unknown(nil)
	}

	var verr *ValidationError
	if errors.As(err, &verr) && verr != nil {
		return Classification{
			Code:    CodeValidation,
			Message: CodeValidation.Message(),
			Status:  CodeValidation.Status(),
			Details: verr.Issues,
			Cause:   err,
		}
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		code, ok := providerCodes[perr.Code]
		msg := code.Message()
		if !ok {
			code = CodeAuth
			msg = perr.Message
			if msg == "" {
				msg = CodeAuth.Message()
			}
		}
		return Classification{Code: code, Message: msg, Status: code.Status(), Details: perr, Cause: err}
	}

	var serr *StoreError
	if errors.As(err, &serr) && serr != nil {
		code, ok := storeCodes[serr.Code]
		if !ok {
			code = CodeDatabase
		}
		return Classification{Code: code, Message: code.Message(), Status: code.Status(), Details: serr, Cause: err}
	}

	switch {
	case errors.Is(err, ErrForbidden):
		return fixed(CodeForbidden, err)
	case errors.Is(err, ErrMissingCredentials):
		return fixed(CodeUnauthorized, err)
	case errors.Is(err, ErrInvalidCredentials):
		c := fixed(CodeUnauthorized, err)
		c.Message = "invalid token"
		return c
	}

	var aerr *Error
	if errors.As(err, &aerr) && aerr != nil {
		code := aerr.Code
		if !code.Known() {
			code = CodeInternal
		}
		msg := aerr.Message
		if msg == "" {
			msg = code.Message()
		}
		return Classification{Code: code, Message: msg, Status: code.Status(), Details: aerr.Details, Cause: err}
	}

	msg := safeMessage(err)
	if msg == "" {
		msg = CodeInternal.Message()
	}
	return Classification{Code: CodeInternal, Message: msg, Status: CodeInternal.Status(), Cause: err}
}

// ClassifyValue classifies an arbitrary value, typically one recovered from
// a panic. Error values go through Classify; anything else is UNKNOWN_ERROR.
func ClassifyValue(v any) Classification {
	if err, ok := v.(error); ok && err != nil {
		return Classify(err)
	}
	var cause error
	if v != nil {
		cause = fmt.Errorf("non-error value: %v", v)
	}
	return unknown(cause)
}

func fixed(code Code, cause error) Classification {
	return Classification{Code: code, Message: code.Message(), Status: code.Status(), Cause: cause}
}

func unknown(cause error) Classification {
	return fixed(CodeUnknown, cause)
}

// safeMessage returns err.Error(), recovering from panicking Error methods
// such as those of typed nil receivers.
func safeMessage(err error) (msg string) {
	defer func() {
		if recover() != nil {
			msg = ""
		}
	}()
	return err.Error()
}
