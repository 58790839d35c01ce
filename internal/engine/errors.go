package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Code categorizes engine errors. Codes are stable strings: they appear
// in stored results, dead letters and API responses.
type Code string

const (
	// CodeNotFound: the wallet does not exist in the registry.
	CodeNotFound Code = "not_found"

	// CodeForbidden: the wallet exists but the caller does not own it,
	// or it is deactivated.
	CodeForbidden Code = "forbidden"

	// CodeDuplicateRequest: idempotency-key reuse with a different
	// payload. The original record is untouched.
	CodeDuplicateRequest Code = "duplicate_request"

	// CodeInvalidRequest: malformed amount or fields, or insufficient
	// balance detected before submit.
	CodeInvalidRequest Code = "invalid_request"

	// CodePolicyViolation: a spending cap or allow-list breach.
	CodePolicyViolation Code = "policy_violation"

	// CodeServicePaused: the circuit breaker (or a wallet-local pause)
	// blocks this action.
	CodeServicePaused Code = "service_paused"

	// CodeExternalSubmit: the external submitter collaborator failed.
	// Unlike the codes above, this failure IS durably recorded.
	CodeExternalSubmit Code = "external_submit_error"
)

// HTTPStatus maps a code to the status an HTTP surface should return.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeDuplicateRequest:
		return http.StatusConflict
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodePolicyViolation:
		return http.StatusUnprocessableEntity
	case CodeServicePaused:
		return http.StatusServiceUnavailable
	case CodeExternalSubmit:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is an engine error with structured fields for diagnostics.
// The Code distinguishes "rejected before attempt" (everything except
// external_submit_error) from "attempted and failed".
type Error struct {
	Code    Code
	Message string

	// Key identifies the affected execution, when one is involved.
	Key string

	// Wallet identifies the affected wallet, when known.
	Wallet string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an engine Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, c Code) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == c
	}
	return false
}

// CodeOf extracts the engine code from an error, or "" if err is not an
// engine Error.
func CodeOf(err error) Code {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func newError(code Code, key, wallet, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Key:     key,
		Wallet:  wallet,
	}
}
