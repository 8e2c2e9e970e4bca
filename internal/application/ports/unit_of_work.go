package ports

import "context"

// UnitOfWork makes the atomic-unit boundary explicit. One Execute call
// is one storage transaction: every multi-row mutation of the reserve,
// confirm and reconcile steps runs inside it, so partial application is
// never observable.
type UnitOfWork interface {
	// Execute runs fn inside a transaction. A nil return commits, an
	// error rolls back. The context passed to fn carries the
	// transaction; repositories called inside fn must use it.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error

	// ExecuteWithRetry is Execute plus a bounded retry on detected
	// serialization conflicts. Non-retryable errors surface
	// immediately; exhausted retries surface as a conflict error.
	ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error
}
