package ai

import (
	"context"
	"errors"
)

var (
	// ErrCollaboratorTimeout indicates an external AI service did not
	// answer within the configured deadline.
	ErrCollaboratorTimeout = errors.New("collaborator timed out")
)

// IsTimeout reports whether err represents a collaborator timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrCollaboratorTimeout) || errors.Is(err, context.DeadlineExceeded)
}
