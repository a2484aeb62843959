package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"applyforge-backend/internal/shared/telemetry"
)

// RetryPolicy bounds each completion attempt with a timeout and retries
// transient upstream failures with backoff. Exhaustion surfaces as
// ErrUpstreamUnavailable.
type RetryPolicy struct {
	AttemptTimeout time.Duration
	MaxRetries     uint64
	InitialBackoff time.Duration
}

// DefaultRetryPolicy suits interactive requests that hold an HTTP connection
// open while the model responds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		AttemptTimeout: 90 * time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Second,
	}
}

// RetryingClient wraps a CompletionClient with the retry policy.
type RetryingClient struct {
	inner  CompletionClient
	policy RetryPolicy
}

// WithRetry wraps client so every blocking call runs under the policy.
// Streaming calls are retried only until the first delta reaches the caller;
// after that a failure must surface, because frames were already delivered.
func WithRetry(client CompletionClient, policy RetryPolicy) *RetryingClient {
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = DefaultRetryPolicy().AttemptTimeout
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = DefaultRetryPolicy().InitialBackoff
	}
	return &RetryingClient{inner: client, policy: policy}
}

func (c *RetryingClient) backoff() retry.Backoff {
	b := retry.NewExponential(c.policy.InitialBackoff)
	return retry.WithMaxRetries(c.policy.MaxRetries, b)
}

// Complete runs the blocking call with per-attempt timeout and backoff.
func (c *RetryingClient) Complete(ctx context.Context, req Request) (Result, error) {
	var result Result
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()

		res, err := c.inner.Complete(attemptCtx, req)
		if err != nil {
			if retryable(ctx, attemptCtx, err) {
				telemetry.Warn("llm.retry", map[string]any{
					"attempt": attempt,
					"error":   err.Error(),
				})
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return Result{}, wrapExhausted(err)
	}
	return result, nil
}

// CompleteStream retries failed attempts only while no delta has been
// forwarded yet.
func (c *RetryingClient) CompleteStream(ctx context.Context, req Request, onDelta func(delta string) error) (Usage, error) {
	var usage Usage
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()

		delivered := false
		u, err := c.inner.CompleteStream(attemptCtx, req, func(delta string) error {
			delivered = true
			return onDelta(delta)
		})
		if err != nil {
			if !delivered && retryable(ctx, attemptCtx, err) {
				telemetry.Warn("llm.retry", map[string]any{
					"attempt":   attempt,
					"streaming": true,
					"error":     err.Error(),
				})
				return retry.RetryableError(err)
			}
			return err
		}
		usage = u
		return nil
	})
	if err != nil {
		return Usage{}, wrapExhausted(err)
	}
	return usage, nil
}

// retryable treats provider failures and per-attempt timeouts as transient,
// but never retries once the caller's own context is done.
func retryable(parent, attempt context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return true
	}
	if attempt.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

func wrapExhausted(err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return err
}

var _ CompletionClient = (*RetryingClient)(nil)
