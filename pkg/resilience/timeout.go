package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeLimit marks a call that ran past its own limit, as opposed to one
// whose caller gave up.
var ErrTimeLimit = errors.New("time limit exceeded")

// WithTimeLimit runs fn under a context that expires after limit. fn must
// honour its context. A limit <= 0 runs fn unbounded.
func WithTimeLimit(ctx context.Context, name string, limit time.Duration, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	limited, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	err := fn(limited)
	if err != nil && ctx.Err() == nil && errors.Is(limited.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w (limit %v): %v", name, ErrTimeLimit, limit, err)
	}
	return err
}
