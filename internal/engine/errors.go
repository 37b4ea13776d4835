package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// Expected, recoverable conditions. The dispatch queue resolves a missing
// session with a bounded requeue; it is never surfaced as a hard failure for
// a single send.
var (
	ErrNoSessionAvailable = errors.New("no session available")
	ErrSessionNotFound    = errors.New("session not found")
)

// SendError is a provider-level send failure. It is terminal for an item only
// after the retry budget is exhausted.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("send failed: %s", e.Reason)
}

func (e *SendError) Unwrap() error { return e.Err }
