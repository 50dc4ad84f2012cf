package clearinghouse

import (
	"errors"
	"fmt"
)

// GatewayRejection is a 4xx response from the clearinghouse. The request is
// malformed or refused; retrying without changes will not succeed.
type GatewayRejection struct {
	StatusCode int
	Message    string
}

func (e *GatewayRejection) Error() string {
	return fmt.Sprintf("clearinghouse rejected request (%d): %s", e.StatusCode, e.Message)
}

// TransientError is a timeout, 5xx, or network failure. The caller may retry
// with the same idempotency key.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("clearinghouse %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRejection reports whether err is a terminal 4xx rejection.
func IsRejection(err error) bool {
	var gr *GatewayRejection
	return errors.As(err, &gr)
}
