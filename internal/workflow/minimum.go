// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package workflow

import (
	"context"
	"time"
)

// Timer returns a channel that fires once after d.
type Timer func(d time.Duration) <-chan time.Time

// RealTimer is time.After.
func RealTimer(d time.Duration) <-chan time.Time { return time.After(d) }

// WithMinimumDuration wraps task so the call returns no earlier than min
// after it started: it takes max(actual, min). The task and the wait run
// concurrently and a cancelled ctx ends the wait early.
func WithMinimumDuration[D any](min time.Duration, timer Timer, task Enricher[D]) Enricher[D] {
	if timer == nil {
		timer = RealTimer
	}
	return func(ctx context.Context, draft D) (D, error) {
		if min <= 0 {
			return task(ctx, draft)
		}
		floor := timer(min)
		out, err := task(ctx, draft)
		select {
		case <-floor:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
		return out, err
	}
}
