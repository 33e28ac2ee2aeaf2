package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &TransportError{Kind: KindTimeout}
	})

	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, KindTimeout, te.Kind)
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &TransportError{Kind: KindNoConnectivity}
		}
		return nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 3, calls)
}

func TestNoRetryOnAPIError(t *testing.T) {
	calls := 0
	apiErr := &APIError{Code: -1001, Message: "please login"}
	err := WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return apiErr
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, apiErr, err)
}

func TestNoRetryOnDecodeError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &DecodeError{}
	})

	assert.Equal(t, 1, calls)
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestNoRetryOnHTTPStatus(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &TransportError{Kind: KindHTTPStatus, Status: 500}
	})

	assert.Equal(t, 1, calls)
	assert.False(t, IsTransient(err))
}

func TestNoRetryOnSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, 10, 10*time.Second, func() error {
		calls++
		cancel()
		return &TransportError{Kind: KindTimeout}
	})

	// The long inter-attempt delay never elapses; cancellation cuts it
	// short.
	assert.Equal(t, 1, calls)
	assert.Error(t, err)
}
