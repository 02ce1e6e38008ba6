package ai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloo-solutions/converso/internal/domain"
)

const (
	providerMaxRetries    = 3
	providerRetryInterval = 500 * time.Millisecond
)

// withRetry runs fn, retrying retryable provider failures with exponential
// backoff up to providerMaxRetries. Permanent failures return immediately.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = providerRetryInterval

	var out T
	op := func() error {
		v, err := fn()
		if err != nil {
			if domain.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = v
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, providerMaxRetries), ctx))
	return out, err
}
