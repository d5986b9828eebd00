package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return &StatusError{URL: "u", StatusCode: http.StatusBadGateway}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &StatusError{URL: "u", StatusCode: http.StatusBadRequest}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Millisecond, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewBreaker[int]("test-provider", time.Minute)
	fail := &StatusError{URL: "u", StatusCode: http.StatusServiceUnavailable}
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, fail })
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, IsUnavailable(err))
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	cb := NewBreaker[int]("test-client-errors", time.Minute)
	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(func() (int, error) {
			return 0, &StatusError{URL: "u", StatusCode: http.StatusNotFound}
		})
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
