package connection

import (
	"fmt"

	"github.com/moffa90/go-espflash/protocol"
)

// Error is implemented by every connection failure. The interface is
// sealed; the classifiers in this package produce every member, so
// callers can switch over the concrete types exhaustively.
type Error interface {
	error

	connectionError()
}

// Sealed union markers.
func (*SerialError) connectionError()           {}
func (*ConnectionFailedError) connectionError() {}
func (*DeviceNotFoundError) connectionError()   {}
func (*TimeoutError) connectionError()          {}
func (*FramingError) connectionError()          {}
func (*OversizedPacketError) connectionError()  {}

// SerialError is an opaque I/O failure on the serial port, the residual
// class for anything not recognized as a more specific condition.
type SerialError struct {
	// Err is the underlying failure.
	Err error
}

func (e *SerialError) Error() string {
	return fmt.Sprintf("io error while using serial port: %v", e.Err)
}

func (e *SerialError) Unwrap() error {
	return e.Err
}

// DiagnosticCode identifies the failure for tooling.
func (e *SerialError) DiagnosticCode() string {
	return "espflash.serial_error"
}

// ConnectionFailedError reports that the device never answered the
// handshake.
type ConnectionFailedError struct {
	// Err is the failure from the last handshake attempt, if any.
	Err error
}

func (e *ConnectionFailedError) Error() string {
	return "failed to connect to the device"
}

func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

// DiagnosticCode identifies the failure for tooling.
func (e *ConnectionFailedError) DiagnosticCode() string {
	return "espflash.connection_failed"
}

// Hint suggests what the user should check first.
func (e *ConnectionFailedError) Hint() string {
	return "Ensure that the device is connected and the reset and boot pins are not being held down"
}

// DeviceNotFoundError reports that the serial port does not exist.
type DeviceNotFoundError struct {
	// Err is the underlying failure, if any.
	Err error
}

func (e *DeviceNotFoundError) Error() string {
	return "serial port not found"
}

func (e *DeviceNotFoundError) Unwrap() error {
	return e.Err
}

// DiagnosticCode identifies the failure for tooling.
func (e *DeviceNotFoundError) DiagnosticCode() string {
	return "espflash.device_not_found"
}

// Hint suggests what the user should check first.
func (e *DeviceNotFoundError) Hint() string {
	return "Ensure that the device is connected and your host recognizes the serial adapter"
}

// TimeoutError reports that the device did not answer in time. The
// detector never knows which command was outstanding; the call site
// that does attributes it afterwards with NewTimeoutError.
type TimeoutError struct {
	// Command is the attributed command, unknown when zero.
	Command TimedOutCommand
}

// NewTimeoutError returns a TimeoutError attributed to cmd.
func NewTimeoutError(cmd protocol.Command) *TimeoutError {
	return &TimeoutError{Command: TimedOutCommand{Command: &cmd}}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout while running %scommand", e.Command)
}

// DiagnosticCode identifies the failure for tooling.
func (e *TimeoutError) DiagnosticCode() string {
	return "espflash.timeout"
}

// TimedOutCommand is the command outstanding when a timeout fired, if
// the call site attributed one.
type TimedOutCommand struct {
	Command *protocol.Command
}

// Known reports whether a command was attributed.
func (t TimedOutCommand) Known() bool {
	return t.Command != nil
}

// String renders the command name followed by a space, or nothing when
// no command is attributed, so it can prefix the word "command" either
// way.
func (t TimedOutCommand) String() string {
	if t.Command == nil {
		return ""
	}
	return t.Command.String() + " "
}

// FramingError reports a packet with invalid SLIP framing, including a
// stream that ended mid-frame.
type FramingError struct{}

func (e *FramingError) Error() string {
	return "received packet has invalid SLIP framing"
}

// DiagnosticCode identifies the failure for tooling.
func (e *FramingError) DiagnosticCode() string {
	return "espflash.slip_framing"
}

// Hint suggests what the user should try.
func (e *FramingError) Hint() string {
	return "Try hard-resetting the device and try again, if the error persists your ROM might be corrupted"
}

// OversizedPacketError reports a packet larger than the receive buffer
// allows.
type OversizedPacketError struct{}

func (e *OversizedPacketError) Error() string {
	return "received packet too large for buffer"
}

// DiagnosticCode identifies the failure for tooling.
func (e *OversizedPacketError) DiagnosticCode() string {
	return "espflash.oversized_packet"
}

// Hint suggests what the user should try.
func (e *OversizedPacketError) Hint() string {
	return "Try hard-resetting the device and try again, if the error persists your ROM might be corrupted"
}
