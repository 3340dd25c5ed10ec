// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explorer

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior with exponential backoff for
// proposer and oracle calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the initial wait duration before first retry.
	// Default: 500ms
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait duration between retries.
	// Default: 10s
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	// Default: 2.0
	BackoffFactor float64

	// JitterFactor is the maximum jitter as a fraction of backoff (0-1).
	// Adds randomness to prevent thundering herd. Default: 0.2
	JitterFactor float64
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// RetryableFunc is a function that can be retried.
// It should return nil on success, or an error.
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes the given function with exponential backoff retry.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - config: Retry configuration.
//   - fn: The function to execute and potentially retry.
//
// Outputs:
//   - error: The last error if all attempts failed, nil on success.
//
// Context cancellation stops retrying immediately and returns the context
// error. Every other error is treated as transient up to MaxAttempts;
// callers absorb the final error into expansion_failed handling.
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		// Context errors are never retried.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if attempt == config.MaxAttempts {
			break
		}

		waitTime := withJitter(backoff, config.JitterFactor)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}

		backoff = nextBackoff(backoff, config.BackoffFactor, config.MaxBackoff)
	}

	return lastErr
}

// withJitter applies random jitter to a backoff duration.
// The result lies in [base*(1-jitter), base*(1+jitter)].
func withJitter(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	jitter := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(base) * (1.0 + jitter))
}

// nextBackoff calculates the next backoff value.
func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	if factor < 1.0 {
		factor = 1.0
	}
	next := time.Duration(float64(current) * factor)
	if max > 0 && next > max {
		return max
	}
	return next
}
