package api

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	Logger "github.com/neillwu/wanclient/utils/log"
)

const (
	// DefaultMaxAttempts is the total number of invocations of the wrapped
	// call, first try included.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the flat pause between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// WithRetry re-invokes fn on transient transport failures only: Timeout,
// NoConnectivity and HostUnreachable. APIError, DecodeError, HTTP status and
// TLS failures are deterministic for a given request and are surfaced
// immediately; retrying them wastes a round-trip and can double-submit a
// mutation. After maxAttempts total invocations the last observed error is
// returned unchanged. The pause between attempts is timer-based and honors
// ctx cancellation.
func WithRetry(ctx context.Context, maxAttempts int, delay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		Logger.Log.Warnf("transient transport failure, retrying in %v: %v", next, err)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(maxAttempts-1)),
		ctx,
	)
	return backoff.RetryNotify(op, b, notify)
}
