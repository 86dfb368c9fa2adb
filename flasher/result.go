package flasher

import (
	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/protocol"
)

// Flashing promotes a connecting-stage failure to the flashing stage.
// Every other value, including nil, success-path errors from other
// packages and failures already in the flashing stage, passes through
// unchanged, so applying it twice is a no-op.
//
// Call sites that run after the handshake wrap their command errors
// with it; the transport below only ever reports the connecting stage.
func Flashing(err error) error {
	if se, ok := err.(*StageError); ok && se.Stage == StageConnecting {
		return &StageError{Stage: StageFlashing, Err: se.Err}
	}
	return err
}

// ForCommand attributes a timeout to the command that was in flight when
// it fired. The timeout detector sits below the command layer and never
// knows the command, so the single call site that does applies this
// after the fact. Only a *StageError wrapping a timeout matches, with
// its stage preserved; every other value passes through unchanged.
//
// Flashing and ForCommand match on different parts of the value, so they
// may be applied in either order.
func ForCommand(err error, cmd protocol.Command) error {
	se, ok := err.(*StageError)
	if !ok {
		return err
	}
	if _, ok := se.Err.(*connection.TimeoutError); !ok {
		return err
	}
	return &StageError{Stage: se.Stage, Err: connection.NewTimeoutError(cmd)}
}
