package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v68/github"
)

// baseBackoff is the first retry delay; each retry doubles it.
var baseBackoff = time.Second

// maxBackoff caps any single wait, including server-suggested ones.
var maxBackoff = time.Minute

type authError struct {
	message string
	err     error
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

func (e *authError) Unwrap() error { return e.err }

// IsAuthError reports whether err is a GitHub authentication or
// authorization failure.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// classify maps a go-github error to an auth error, a retry delay, or a
// permanent failure. A zero delay with retry true means "use backoff".
// Server errors are retried only for idempotent calls: a 5xx may arrive
// after the write took effect. Rate limit rejections are always retried.
func classify(err error, idempotent bool) (wrapped error, retry bool, wait time.Duration) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		if d := time.Until(rle.Rate.Reset.Time); d > 0 {
			return err, true, d
		}
		return err, true, 0
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return err, true, abuse.GetRetryAfter()
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch code := er.Response.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &authError{message: er.Message, err: err}, false, 0
		case code == http.StatusTooManyRequests:
			return err, true, 0
		case code >= 500:
			return err, idempotent, 0
		}
	}
	return err, false, 0
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	return c.do(ctx, op, true, fn)
}

// retryCreate retries a call that creates something only when GitHub
// rejected it outright, never after a server error.
func (c *Client) retryCreate(ctx context.Context, op string, fn func() error) error {
	return c.do(ctx, op, false, fn)
}

func (c *Client) do(ctx context.Context, op string, idempotent bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		wrapped, retryable, wait := classify(err, idempotent)
		lastErr = wrapped
		if !retryable || attempt == c.maxRetries {
			break
		}
		if wait <= 0 {
			wait = baseBackoff << attempt
		}
		wait = min(wait, maxBackoff)
		c.logger.Warn("retrying github call", "op", op, "attempt", attempt+1, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
