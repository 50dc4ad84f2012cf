package claims

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError indicates a malformed draft. The compile call fails as a
// whole; nothing is partially applied.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid claim draft: " + e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a draft validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MissingFieldsError names the claim fields required for a status check that
// are absent. It is raised locally, before any network call.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// IsMissingFields reports whether err is a local missing-fields failure.
func IsMissingFields(err error) bool {
	var mfe *MissingFieldsError
	return errors.As(err, &mfe)
}

// ErrNotFound indicates the claim does not exist.
var ErrNotFound = errors.New("claim not found")
