package session

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is returned by ApplyFilter for an unknown dimension or value.
var ErrInvalidFilter = errors.New("invalid filter")

// VerificationMismatchError means the supplied code was wrong or malformed.
// The record is left untouched.
type VerificationMismatchError struct {
	ID        string
	Malformed bool
}

func (e *VerificationMismatchError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("verification code for %s is malformed", e.ID)
	}
	return fmt.Sprintf("verification code for %s does not match", e.ID)
}

// VerificationLookupError means the record could not be read or written.
type VerificationLookupError struct {
	ID  string
	Err error
}

func (e *VerificationLookupError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.ID, e.Err)
}

func (e *VerificationLookupError) Unwrap() error {
	return e.Err
}
