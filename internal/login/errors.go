package login

import (
	"errors"
	"fmt"
	"time"
)

// ErrLoginTimeout is matched by every TimeoutError
var ErrLoginTimeout = errors.New("login timeout")

// TimeoutError reports a required gate that did not open in time
type TimeoutError struct {
	Gate    Gate
	Timeout time.Duration
	// Hint describes what the page showed when the gate timed out
	Hint string
	Err  error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("login: timeout at %s after %s", e.Gate, e.Timeout)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrLoginTimeout }

// PreconditionError reports an attempt to press a control that was not
// confirmed visible and enabled
type PreconditionError struct {
	Gate Gate
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("login: %s pressed before it was confirmed visible and enabled", e.Gate)
}
