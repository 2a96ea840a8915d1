package reconcile

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds exponential backoff for transient store failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64 `mapstructure:"max_retries" default:"4"`
	// Base is the first backoff interval.
	Base time.Duration `mapstructure:"base" default:"200ms"`
	// Max caps any single backoff interval.
	Max time.Duration `mapstructure:"max" default:"5s"`
}

// DefaultRetryPolicy is used when a zero policy is supplied.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 4, Base: 200 * time.Millisecond, Max: 5 * time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	if p.Base <= 0 {
		p = DefaultRetryPolicy
	}
	b := retry.NewExponential(p.Base)
	if p.Max > 0 {
		b = retry.WithCappedDuration(p.Max, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// Do runs fn, retrying while it fails with an error marked Transient.
// Permanent errors and context cancellation stop immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
