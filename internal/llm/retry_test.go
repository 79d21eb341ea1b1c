package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return "", s.errs[s.calls-1]
	}
	return `{"ok":true}`, nil
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryingSucceedsOnThirdAttempt(t *testing.T) {
	base := &scriptedClient{errs: []error{
		&TransientError{Op: "chat", Err: errors.New("status 503")},
		&TransientError{Op: "chat", Err: errors.New("timeout")},
	}}
	client := NewRetrying(base, fastPolicy(3))

	out, err := client.Complete(context.Background(), Prompt{User: "hi"}, Params{})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, 3, base.calls)
}

func TestRetryingSurfacesLastTransientAfterExhaustion(t *testing.T) {
	last := &TransientError{Op: "chat", Err: errors.New("third")}
	base := &scriptedClient{errs: []error{
		&TransientError{Op: "chat", Err: errors.New("first")},
		&TransientError{Op: "chat", Err: errors.New("second")},
		last,
		nil,
	}}
	client := NewRetrying(base, fastPolicy(3))

	_, err := client.Complete(context.Background(), Prompt{}, Params{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 3, base.calls)
}

func TestRetryingDoesNotRetryQuotaOrMalformed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{name: "quota", err: &QuotaError{Message: "insufficient_quota"}, is: IsQuota},
		{name: "malformed", err: &MalformedResponseError{Reason: "missing choices"}, is: IsMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &scriptedClient{errs: []error{tt.err}}
			client := NewRetrying(base, fastPolicy(3))

			_, err := client.Complete(context.Background(), Prompt{}, Params{})
			require.Error(t, err)
			assert.True(t, tt.is(err))
			assert.Equal(t, 1, base.calls)
		})
	}
}

func TestRetryingStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	base := ClientFunc(func(ctx context.Context, p Prompt, params Params) (string, error) {
		cancel()
		return "", &TransientError{Op: "chat", Err: context.Canceled}
	})
	client := NewRetrying(base, fastPolicy(5))

	_, err := client.Complete(ctx, Prompt{}, Params{})
	require.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "quota", Outcome(&QuotaError{}))
	assert.Equal(t, "malformed", Outcome(&MalformedResponseError{}))
	assert.Equal(t, "transient", Outcome(&TransientError{Err: errors.New("x")}))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}
