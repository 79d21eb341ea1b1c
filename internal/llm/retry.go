package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"coverletter-backend/internal/shared/telemetry"
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	// MaxAttempts counts the first call; values below 1 mean 3.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts with exponential backoff from 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// Retrying retries transient failures of the wrapped client. Quota and
// malformed-response errors, and any non-transient error, surface immediately.
type Retrying struct {
	base   Client
	policy RetryPolicy
}

// NewRetrying wraps base with policy.
func NewRetrying(base Client, policy RetryPolicy) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 8 * time.Second
	}
	return &Retrying{base: base, policy: policy}
}

func (r *Retrying) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.policy.BaseDelay
	exp.MaxInterval = r.policy.MaxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.policy.MaxAttempts-1)), ctx)
}

// Complete implements Client.
func (r *Retrying) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := r.base.Complete(ctx, prompt, params)
		if err == nil {
			out = resp
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		})
	}

	err := backoff.RetryNotify(op, r.newBackOff(ctx), notify)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return "", perm.Err
		}
		return "", err
	}
	return out, nil
}

var _ Client = (*Retrying)(nil)
