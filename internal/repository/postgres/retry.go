package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"expense-manager/internal/errs"
)

const (
	retryAttempts = 3
	retryBase     = 50 * time.Millisecond
)

// withRetry runs fn, retrying connection-level failures a bounded number of
// times with fibonacci backoff. Exhaustion surfaces as ErrInternal; all other
// errors pass through unchanged.
func withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil && isTransient(err) {
		return fmt.Errorf("%s: %w: %v", op, errs.ErrInternal, err)
	}
	return err
}
