package scoring

import (
	"fmt"
	"time"
)

// ErrRejected indicates the boundary refused the submission. Retrying the
// same payload will not help.
type ErrRejected struct {
	Reason string
}

func (e *ErrRejected) Error() string {
	if e.Reason == "" {
		return "submission rejected"
	}
	return "submission rejected: " + e.Reason
}

// ErrRateLimit indicates the boundary returned 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrUnavailable indicates the boundary is down or unreachable.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring service unavailable: %v", e.Err)
	}
	return "scoring service unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }
