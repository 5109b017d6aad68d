package fs

import (
	"context"
	"fmt"
	"time"
)

// retries fn with exponential backoff while it fails with a transient
// filesystem error. Anything else fails on the first attempt.

const (
	maxAttempts = 4
	baseBackoff = 50 * time.Millisecond
)

func retry(ctx context.Context, opName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("%s: %w", opName, err)
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseBackoff << (attempt - 1)):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", opName, maxAttempts, lastErr)
}
