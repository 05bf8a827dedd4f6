package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy is a bounded exponential backoff: after failed attempt n
// (0-based) the caller sleeps BaseDelay * 2^n.
type RetryPolicy struct {
	Attempts  uint
	BaseDelay time.Duration
}

// DefaultRetry makes three attempts, waiting 1s and then 2s.
var DefaultRetry = RetryPolicy{Attempts: 3, BaseDelay: time.Second}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Retry runs fn until it succeeds, returns a non-retryable error or the
// policy's attempts are used up. The last error is returned unwrapped.
func Retry[T any](ctx context.Context, p RetryPolicy, log *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	if p.Attempts == 0 {
		p.Attempts = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return retry.DoWithData(
		func() (T, error) { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("llm call failed, retrying",
				"attempt", n+1,
				"error", err,
			)
		}),
	)
}

// CompleteWithRetry is Retry around a single Complete call.
func CompleteWithRetry(ctx context.Context, c Client, req Request, p RetryPolicy, log *slog.Logger) (Response, error) {
	return Retry(ctx, p, log, func(ctx context.Context) (Response, error) {
		return c.Complete(ctx, req)
	})
}
