package service

import "fmt"

type ErrorCode string

const (
	ErrorValidation ErrorCode = "VALIDATION_ERROR"
	ErrorUpstream   ErrorCode = "UPSTREAM_ERROR"

	// ErrorSessionLimit só acontece quando MAX_SESSIONS foi atingido.
	ErrorSessionLimit ErrorCode = "SESSION_LIMIT"
)

// Error carrega o código usado pelo handler para escolher o status HTTP.
// Reason é um identificador curto para log; Err é a causa original.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("service: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("service: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
