package agent

import (
	"errors"
	"fmt"
)

// ErrAborted is returned (wrapping ctx.Err()) when the caller cancels a run
// between steps.
var ErrAborted = errors.New("agent run aborted")

// ErrInvalidOptions is returned by New when options fail validation.
var ErrInvalidOptions = errors.New("invalid agent options")

// TransportError reports a model backend failure. It is fatal to the run:
// no assistant turn exists to continue from.
type TransportError struct {
	Step int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model call failed at step %d: %v", e.Step, e.Err)
}

// Unwrap returns the backend error, which matches model.ErrTransport.
func (e *TransportError) Unwrap() error { return e.Err }
