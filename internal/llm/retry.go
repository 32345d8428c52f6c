package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pdf-ask/internal/retry"
)

type retryingClient struct {
	next     Client
	attempts int
	base     time.Duration
	log      *slog.Logger
}

// WithRetry wraps c so that failed calls are retried up to retries more
// times with exponential backoff. retries <= 0 returns c unchanged.
func WithRetry(c Client, retries int, base time.Duration, log *slog.Logger) Client {
	if retries <= 0 {
		return c
	}
	return &retryingClient{next: c, attempts: retries + 1, base: base, log: log}
}

func (r *retryingClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	attempt := 0
	err := retry.Do(ctx, r.attempts, r.base, func(ctx context.Context) error {
		attempt++
		res, err := r.next.Generate(ctx, prompt)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.log.Warn("llm call failed", "attempt", attempt, "of", r.attempts, "err", err)
			}
			return err
		}
		out = res
		return nil
	})
	return out, err
}
