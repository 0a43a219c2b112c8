package refresh

import (
	"errors"
	"fmt"
)

// ErrRefreshFailed matches every [*FailedError] via errors.Is.
var ErrRefreshFailed = errors.New("refresh failed")

// ErrNoInvoker is returned by [New] without an invoker.
var ErrNoInvoker = errors.New("refresh invoker is required")

// ErrNoClearer is returned by [New] without a clearer.
var ErrNoClearer = errors.New("credential clearer is required")

// FailedError is the terminal outcome shared by every caller waiting on a
// failed refresh. StatusCode is set when the refresh endpoint answered with a
// non-success status.
type FailedError struct {
	Cause      error
	StatusCode int
}

func (e *FailedError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("refresh failed: status %d: %v", e.StatusCode, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("refresh failed: status %d", e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("refresh failed: %v", e.Cause)
	default:
		return "refresh failed"
	}
}

func (e *FailedError) Unwrap() error { return e.Cause }

// Is reports whether target is [ErrRefreshFailed].
func (e *FailedError) Is(target error) bool {
	return target == ErrRefreshFailed
}

func asFailed(err error) *FailedError {
	var fe *FailedError
	if errors.As(err, &fe) {
		return fe
	}
	return &FailedError{Cause: err}
}
