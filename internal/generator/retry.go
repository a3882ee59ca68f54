package generator

import (
	"context"
	"strings"
	"time"
)

const (
	retryBaseDelay = time.Second
	maxRetryDelay  = time.Minute
)

func isRateLimit(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "rate_limit_exceeded") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(strings.ToLower(msg), "rate limit") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// parseRetryAfter reads hints like "Please try again in 607ms" or "Please try
// again in 2.5s". It returns 0 when there is none.
func parseRetryAfter(msg string) time.Duration {
	_, rest, ok := strings.Cut(msg, "Please try again in ")
	if !ok {
		return 0
	}
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r == '.' || r == 'm' || r == 's' || (r >= '0' && r <= '9'))
	})
	if end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSuffix(rest, ".")
	d, err := time.ParseDuration(rest)
	if err != nil {
		return 0
	}
	return d
}

// backoff is 1s, 2s, 4s... capped at a minute. attempt starts at 1.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 7 {
		return maxRetryDelay
	}
	d := retryBaseDelay << (attempt - 1)
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry calls fn until it succeeds, fails with a non rate-limit error, or
// maxRetries rate-limit retries are used up.
func withRetry(ctx context.Context, maxRetries int, wait func(context.Context, time.Duration) error, onRetry func(attempt int, d time.Duration, err error), fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isRateLimit(err) {
			return err
		}
		if attempt >= maxRetries {
			return &RateLimitError{Attempts: attempt + 1, Err: err}
		}
		d := parseRetryAfter(err.Error())
		if d == 0 {
			d = backoff(attempt + 1)
		}
		if onRetry != nil {
			onRetry(attempt+1, d, err)
		}
		if err := wait(ctx, d); err != nil {
			return err
		}
	}
}

// RateLimitError is returned once the retry budget is spent.
type RateLimitError struct {
	Attempts int
	Err      error
}

func (e *RateLimitError) Error() string {
	return "max retries exceeded for rate limiting: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }
