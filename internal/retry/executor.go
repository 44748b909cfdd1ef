package retry

import (
	"context"
	"time"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Executor runs an operation and retries transient failures on the
// strategy's schedule. A fatal error or a successful attempt returns
// immediately. Execute is safe for concurrent use; the onRetry callback
// is fixed at construction via WithOnRetry and never mutated afterwards.
type Executor struct {
	classifier pgseed.ErrorClassifier
	strategy   pgseed.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor pairs an error classifier with a backoff strategy.
// Panics if either is nil.
func NewExecutor(classifier pgseed.ErrorClassifier, strategy pgseed.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy of the executor that invokes callback before
// each retry wait. The receiver is left untouched, so a shared base
// executor can hand out independently configured copies.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs operation, retrying transient errors up to the strategy's
// MaxAttempts additional times. A negative MaxAttempts retries without
// limit. The error of the final attempt is returned; context cancellation
// during a wait surfaces as the context's error.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	if err == nil || !e.classifier.IsTransient(err) {
		return err
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}
		if waitErr := waitFor(ctx, delay); waitErr != nil {
			return waitErr
		}

		err = operation(ctx)
		if err == nil || !e.classifier.IsTransient(err) {
			return err
		}
	}

	return err
}

// waitFor blocks for the delay or until the context ends, whichever
// comes first.
func waitFor(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
