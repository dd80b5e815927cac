package llm

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Policy configures retry behavior for model calls. Backoffs skew long
// because rate limits on completion endpoints take a while to clear.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseBackoff is the initial backoff duration.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each backoff.
	MaxJitter time.Duration
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if p.BaseBackoff < 0 || p.MaxBackoff < 0 || p.MaxJitter < 0 {
		return errors.New("backoff durations cannot be negative")
	}
	return nil
}

// DefaultPolicy mirrors the upstream provider guidance for completion
// endpoints: three attempts, exponential backoff from 1s capped at 15s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  15 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Do executes fn with exponential backoff, retrying only errors that
// isRetryable accepts. Context cancellation aborts between attempts.
func Do[T any](ctx context.Context, p Policy, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryable(lastErr) {
			return result, lastErr
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		backoff := min(p.BaseBackoff<<attempt, p.MaxBackoff)

		var jitter time.Duration
		if p.MaxJitter > 0 {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(p.MaxJitter)))
			if err == nil {
				jitter = time.Duration(n.Int64())
			}
		}

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_attempts", p.MaxAttempts).
			With("backoff", backoff+jitter).
			With("error", lastErr.Error()).
			Warn("Transient model failure, retrying")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}

	return result, fmt.Errorf("%s failed after %d attempts: %w", operation, p.MaxAttempts, lastErr)
}
