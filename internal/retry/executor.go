package retry

import (
	"context"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Executor runs an operation, retrying transient failures.
//
// Execute is safe for concurrent use. WithOnRetry returns a copy, so callers
// can attach their own callback without sharing state.
type Executor struct {
	classifier pgseed.ErrorClassifier
	strategy   pgseed.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier pgseed.ErrorClassifier, strategy pgseed.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewConnectExecutor builds the executor used by connectors: PostgreSQL
// classification, exponential backoff with pgseed defaults and the given
// retry budget.
func NewConnectExecutor(retries int) *Executor {
	return NewExecutor(
		NewPostgreSQLErrorClassifier(),
		NewExponentialBackoff(retries,
			WithInitialDelay(pgseed.DefaultRetryInitialDelay),
			WithMaxDelay(pgseed.DefaultRetryMaxDelay),
		),
	)
}

// WithOnRetry returns a copy of the executor that calls callback before
// each retry.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs operation and retries while the error is transient and the
// budget allows. Returns the last error.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	maxAttempts := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxAttempts >= 0 && attempt >= maxAttempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation(ctx)
	}

	return err
}
