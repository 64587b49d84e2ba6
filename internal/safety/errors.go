package safety

import (
	"errors"
	"fmt"
)

// Response codes. Every code except CodeMalformedInput describes a
// policy outcome returned as a normal response.
const (
	CodeGateViolation     = "GATE_VIOLATION"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeScopeViolation    = "SCOPE_VIOLATION"
	CodeContradiction     = "CONTRADICTION"
	CodeValidationFailure = "VALIDATION_FAILURE"
	CodeMalformedInput    = "MALFORMED_INPUT"
)

// ErrMalformedInput is the only hard error a safety call returns for
// caller mistakes.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError says which argument was wrong.
type MalformedInputError struct {
	Action string
	Detail string
}

func (e *MalformedInputError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedInput, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedInput, e.Action, e.Detail)
}

// Unwrap lets errors.Is match ErrMalformedInput.
func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

func malformed(action, format string, args ...any) error {
	return &MalformedInputError{Action: action, Detail: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err is caller error rather than a failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}
