package poll

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Until when the condition did not hold in time.
var ErrTimeout = errors.New("poll timed out")

// Condition reports whether polling is finished. A non-nil error aborts
// polling and is returned as is.
type Condition func(ctx context.Context) (done bool, err error)

// Until evaluates cond immediately and then every interval until it reports
// done, returns an error, the timeout elapses or ctx is cancelled.
//
// Parameters:
// - ctx: the context for managing the polling loop.
// - interval: the delay between two evaluations.
// - timeout: the overall budget; zero means no limit other than ctx.
// - cond: the condition to evaluate.
//
// Returns:
// - error: nil when cond reported done, ErrTimeout when the budget ran out,
// ctx.Err() on cancellation or the error returned by cond.
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

// Retry calls fn up to attempts times, sleeping delay between failures.
// The last error is returned wrapped with the attempt count.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return errors.Wrapf(err, "failed after %d attempts", attempts)
}
