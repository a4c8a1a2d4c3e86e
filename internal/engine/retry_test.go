package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return nil
	}, IsTransientError)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesTransient(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetryPolicy(), func() error {
		calls++
		if calls < 3 {
			return errors.New("throttled: rate exceeded")
		}
		return nil
	}, IsTransientError)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_TerminalErrorFailsFast(t *testing.T) {
	calls := 0
	terminal := errors.New("access denied")
	err := RetryWithBackoff(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return terminal
	}, IsTransientError)

	assert.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return errors.New("service unavailable")
	}, IsTransientError)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 4, calls) // initial attempt plus three retries
}

func TestRetryWithBackoff_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := &RetryPolicy{MaxRetries: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := RetryWithBackoff(ctx, policy, func() error {
		return errors.New("connection reset")
	}, IsTransientError)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := calculateBackoff(attempt, time.Second, 30*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"throttling text", errors.New("Throttling: Rate exceeded"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"terminal", errors.New("InvalidParameterValue: bad cidr"), false},
		{"api throttle code", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}, true},
		{"api server fault", &smithy.GenericAPIError{Code: "Whatever", Message: "oops", Fault: smithy.FaultServer}, true},
		{"api client fault", &smithy.GenericAPIError{Code: "ValidationError", Message: "no", Fault: smithy.FaultClient}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransientError(tt.err))
		})
	}
}
