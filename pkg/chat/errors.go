package chat

import (
	"errors"
	"fmt"
)

// ErrMultiStepNeedsSingleThread is returned when a MultiStep is dispatched against a
// workspace that does not hold exactly one thread. No completion is attempted.
var ErrMultiStepNeedsSingleThread = errors.New("multi-step instruction requires exactly one thread")

// TransportError wraps a completion provider failure. It aborts the whole run.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
