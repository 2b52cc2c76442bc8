// Package retry wraps connection attempts with exponential backoff.
//
// Connection failures propagate immediately by default: the executor is
// built with zero attempts unless the user asks for retries
// (--connect-retries). Only errors the PostgreSQL classifier considers
// transient are retried; authentication failures and missing databases fail
// on the first attempt regardless of the budget.
//
//	exec := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    conn, err = pgx.ConnectConfig(ctx, cfg)
//	    return err
//	})
package retry
