// Package retry wraps connection attempts in classified, backed-off
// retries.
//
// An Executor pairs an ErrorClassifier (is this failure worth another
// try?) with a BackoffStrategy (how long until that try?). The connectors
// use it so a database still starting up, a dropped dial, or a brief
// resource squeeze does not fail a load outright:
//
//	executor := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3),
//	)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return dial(ctx)
//	})
//
// Fatal errors (bad password, unknown database) return immediately; only
// errors the classifier calls transient consume retry attempts. Executors
// are safe for concurrent use; WithOnRetry returns a configured copy so
// callers can attach logging without sharing state.
package retry
