package common

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/smarttransit/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return ErrNetwork
		}
		return nil
	}, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &HTTPError{Status: http.StatusNotFound}
	err := WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return permanent
	}, fastRetry(5))

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return &HTTPError{Status: http.StatusBadGateway}
	}, fastRetry(3))

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, ErrTransientHTTP)
	assert.Contains(t, err.Error(), "op:")
	assert.Equal(t, 3, calls)
}

func TestWithRetry_RetryAfterIsCappedByMaxDelay(t *testing.T) {
	calls := 0
	start := time.Now()
	err := WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		if calls == 1 {
			return &HTTPError{Status: http.StatusServiceUnavailable, RetryAfter: time.Hour}
		}
		return nil
	}, fastRetry(3))

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseRetryAfter("5"))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("-1"))
	assert.Zero(t, ParseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestWithRetry_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, "op", func(context.Context) error { return ErrNetwork }, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Hour,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "network", err: ErrNetwork, want: true},
		{name: "wrapped network", err: errors.Join(errors.New("dial"), ErrNetwork), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "server error", err: &HTTPError{Status: http.StatusInternalServerError}, want: true},
		{name: "client error", err: &HTTPError{Status: http.StatusBadRequest}, want: false},
		{name: "unauthorized", err: &HTTPError{Status: http.StatusUnauthorized}, want: false},
		{name: "marked retryable", err: &RetryableError{Err: errors.New("busy"), Retryable: true}, want: true},
		{name: "marked permanent", err: &RetryableError{Err: errors.New("bad"), Retryable: false}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
