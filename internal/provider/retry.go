package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// retryMaxRetries caps the number of retries per call, same budget
	// the teacher's agentic loop gave every provider round trip.
	retryMaxRetries      = 3
	retryInitialInterval = time.Second
	retryMaxInterval     = 30 * time.Second
	retryMaxElapsedTime  = 2 * time.Minute
)

// newRetryBackoff builds an exponential backoff with jitter, ported
// from session/loop.go's newRetryBackoff: same constants, same
// context-aware cancellation, same randomization factor.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = retryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, retryMaxRetries), ctx)
}

// withRetryErr re-runs call with exponential backoff and jitter between
// attempts, the same "NextBackOff, sleep, retry" shape session/loop.go
// used around its CreateCompletion call, until it succeeds or the
// backoff policy is exhausted. It wraps each concrete adapter's single
// network round trip, not the LLMProvider interface itself, so test
// doubles that implement LLMProvider directly are never retried.
func withRetryErr(ctx context.Context, call func() error) error {
	b := newRetryBackoff(ctx)
	for {
		err := call()
		if err == nil {
			return nil
		}
		next := b.NextBackOff()
		if next == backoff.Stop {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}
	}
}
