package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/hai0823/AIQualityKit/internal/retry"
)

// Policy controls how many attempts a call gets and how long to back
// off between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	CallTimeout time.Duration
}

// DefaultPolicy matches the backends' published rate limit guidance.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		CallTimeout: 3 * time.Minute,
	}
}

type retryCaller struct {
	next   Caller
	policy Policy
	log    *slog.Logger
}

// WithRetry wraps next so transient failures are retried with
// exponential backoff. Auth and malformed errors fail immediately.
func WithRetry(next Caller, policy Policy, log *slog.Logger) Caller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	return &retryCaller{next: next, policy: policy, log: log}
}

func (r *retryCaller) Call(ctx context.Context, prompt string) (string, Usage, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retry.CappedBackoff(attempt-1, r.policy.BaseDelay, r.policy.MaxDelay)
			r.log.Warn("retrying provider call",
				"attempt", attempt+1,
				"max_attempts", r.policy.MaxAttempts,
				"delay", delay,
				"err", lastErr)
			select {
			case <-ctx.Done():
				return "", Usage{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		reply, usage, err := r.call(ctx, prompt)
		if err == nil {
			return reply, usage, nil
		}
		lastErr = err
		if !Retryable(err) {
			return "", Usage{}, err
		}
	}
	return "", Usage{}, lastErr
}

func (r *retryCaller) call(ctx context.Context, prompt string) (string, Usage, error) {
	if r.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.CallTimeout)
		defer cancel()
	}
	return r.next.Call(ctx, prompt)
}
