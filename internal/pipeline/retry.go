package pipeline

import (
	"context"
	"time"

	"featuregen/internal/logging"
	"featuregen/internal/services"
	"featuregen/internal/services/ollama"
)

// withRetry runs fn, retrying errors marked retryable (backend Timeout and
// ServiceUnreachable) up to MaxRetries more times. Cancellation aborts.
func withRetry[T any](ctx context.Context, p *Pipeline, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.opts.MaxRetries + 1
	var (
		value T
		err   error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err = fn(ctx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil || attempt == attempts || !services.IsRetryable(err) {
			return value, err
		}
		delay := p.backoff(attempt)
		kind := ollama.KindName(err)
		p.deps.Metrics.ObserveRetry(kind)
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "backend call failed; retrying", "backend_retry",
			logging.String("operation", op),
			logging.String("error_kind", kind),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run continues after backoff"),
		)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return value, sleepErr
		}
	}
	return value, err
}

// backoff returns the delay before retry number attempt (1-based): base,
// base*2, base*4, ... capped at RetryMax.
func (p *Pipeline) backoff(attempt int) time.Duration {
	base, maxDelay := p.opts.RetryBase, p.opts.RetryMax
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
