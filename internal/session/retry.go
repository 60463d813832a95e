package session

import (
	"context"
	"errors"
	"time"

	"github.com/p-arndt/werkbank/internal/docker"
)

const (
	engineMaxAttempts = 3
	engineBaseBackoff = 200 * time.Millisecond
)

// withEngineRetry runs fn, retrying with exponential backoff while the
// engine control API is unreachable. Any other error returns
// immediately; after the attempt budget the last error is surfaced as a
// retryable failure for the caller.
func withEngineRetry(ctx context.Context, fn func() error) error {
	backoff := engineBaseBackoff
	var lastErr error
	for attempt := 0; attempt < engineMaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, docker.ErrEngineUnavailable) {
			return lastErr
		}
		if attempt < engineMaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}
