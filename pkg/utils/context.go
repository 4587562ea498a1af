package utils

import (
	"context"
	"errors"
	"time"
)

// Timeouts for outbound calls. Search and checkout get the longer one
// because both fan out to several queries server-side.
const (
	DefaultTimeout = 5 * time.Second
	SlowTimeout    = 15 * time.Second
)

// WithTimeout wraps ctx with the standard request timeout
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTimeout)
}

// WithSlowTimeout wraps ctx with the extended timeout
func WithSlowTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, SlowTimeout)
}

// IsContextError reports whether err came from cancellation or a deadline
// rather than the operation itself
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
