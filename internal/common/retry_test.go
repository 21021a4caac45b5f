package common

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, opts)

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return errors.New("still broken")
		}, opts)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable errors stop immediately", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: errors.New("bad request"), Retryable: false}
		}, opts)

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.NotErrorIs(t, err, ErrMaxRetries)
	})

	t.Run("single attempt returns the raw error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := WithRetry(context.Background(), func() error {
			return sentinel
		}, RetryOptions{MaxAttempts: 1})

		assert.Equal(t, sentinel, err)
	})

	t.Run("context cancellation aborts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := WithRetry(ctx, func() error {
			return errors.New("transient")
		}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		err           error
		name          string
		wantRateLimit bool
		wantRetryable bool
	}{
		{
			name:          "rate limited",
			err:           &googleapi.Error{Code: http.StatusTooManyRequests},
			wantRateLimit: true,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           &googleapi.Error{Code: http.StatusServiceUnavailable},
			wantRetryable: true,
		},
		{
			name: "permission denied",
			err:  &googleapi.Error{Code: http.StatusForbidden},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyAPIError(tt.err)
			assert.Equal(t, tt.wantRateLimit, errors.Is(classified, ErrRateLimit))
			assert.Equal(t, tt.wantRetryable, IsRetryable(classified))
		})
	}

	assert.NoError(t, ClassifyAPIError(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, ClassifyAPIError(plain))
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "debug", "json")
	require.NoError(t, err)

	_, err = NewLogger(&bytes.Buffer{}, "loud", "console")
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
