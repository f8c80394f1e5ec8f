package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocalia/anamnesis/ai"
)

// deadline applies the configured per-call timeout unless the caller's
// context already carries an earlier one.
func deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if existing, ok := ctx.Deadline(); ok && time.Until(existing) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// wrapTimeout tags deadline expirations so callers can match on
// ai.ErrCollaboratorTimeout.
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ai.ErrCollaboratorTimeout, err)
	}
	return err
}
