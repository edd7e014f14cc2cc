// Package retry re-runs operations that lost an optimistic concurrency race.
package retry

import (
	"context"
	"time"

	apperrors "planner/pkg/errors"
	"planner/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewPolicy(maxAttempts int, initial time.Duration) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: initial,
		MaxInterval:     32 * initial,
	}
}

// OnConflict runs op until it succeeds, returns an error other than
// CONCURRENCY_CONFLICT, or exhausts the policy. The last error is returned.
func OnConflict(ctx context.Context, p Policy, operation string, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if apperrors.HasCode(err, apperrors.CodeConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(error, time.Duration) {
		metrics.ConcurrencyConflicts.WithLabelValues(operation).Inc()
	})
}
