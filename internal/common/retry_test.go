package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/service"
)

func TestWithRetry(t *testing.T) {
	errTransient := errors.New("transient")
	opts := service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	tests := []struct {
		failures  error
		checkErr  func(t *testing.T, err error)
		name      string
		failUntil int
		wantCalls int
	}{
		{
			name:      "succeeds first try",
			failUntil: 0,
			wantCalls: 1,
		},
		{
			name:      "succeeds after transient failures",
			failures:  errTransient,
			failUntil: 2,
			wantCalls: 3,
		},
		{
			name:      "gives up after max attempts",
			failures:  errTransient,
			failUntil: 10,
			wantCalls: 3,
			checkErr: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorIs(t, err, ErrMaxRetries)
				assert.ErrorContains(t, err, "after 3 attempts: transient")
			},
		},
		{
			name:      "permanent error stops immediately",
			failures:  Permanent(errTransient),
			failUntil: 10,
			wantCalls: 1,
			checkErr: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorIs(t, err, errTransient)
				assert.NotErrorIs(t, err, ErrMaxRetries)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= tt.failUntil {
					return tt.failures
				}
				return nil
			}, opts)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.checkErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			tt.checkErr(t, err)
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return errors.New("boom")
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuleEvaluationError(t *testing.T) {
	cause := errors.New("bad threshold")
	err := error(&RuleEvaluationError{RuleID: "r1", Err: cause})

	assert.ErrorIs(t, err, ErrRuleEvaluation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "rule r1: bad threshold", err.Error())

	var ruleErr *RuleEvaluationError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "r1", ruleErr.RuleID)
}

func TestInvalidInputf(t *testing.T) {
	err := InvalidInputf("transaction %q has no category", "t1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), `transaction "t1" has no category`)
}

func TestUserError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewUserError("Could not open the database", cause)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "Could not open the database", userErr.UserMessage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Could not open the database: disk I/O error", err.Error())
	assert.Equal(t, "nothing to show", NewUserError("nothing to show", nil).Error())
}
