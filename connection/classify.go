package connection

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.bug.st/serial"

	"github.com/moffa90/go-espflash/slip"
)

// FromIO classifies a raw I/O failure. Expired deadlines become an
// unattributed timeout, missing files become a missing device, anything
// else stays an opaque serial error. Total: every input maps to a
// variant.
func FromIO(err error) Error {
	switch {
	case isTimeout(err):
		return &TimeoutError{}
	case errors.Is(err, fs.ErrNotExist):
		return &DeviceNotFoundError{Err: err}
	default:
		return &SerialError{Err: err}
	}
}

// FromSerial classifies a failure from the serial library. A missing
// port maps to DeviceNotFoundError; everything else follows the I/O
// rules.
func FromSerial(err error) Error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortNotFound {
		return &DeviceNotFoundError{Err: err}
	}
	return FromIO(err)
}

// FromSLIP classifies a framing-layer failure. A stream that ends
// mid-frame counts as a framing failure; read errors pass through to
// the I/O rules.
func FromSLIP(err error) Error {
	switch {
	case errors.Is(err, slip.ErrFraming), errors.Is(err, slip.ErrEndOfStream):
		return &FramingError{}
	case errors.Is(err, slip.ErrOversizedPacket):
		return &OversizedPacketError{}
	default:
		return FromIO(err)
	}
}

// FromBinary classifies a failure from decoding a response header.
// Headers decode from complete in-memory frames, so the only failure a
// correct caller can see is truncation. Any other failure means the
// decode was invoked on a broken layout, which is a bug, not a device
// condition.
func FromBinary(err error) Error {
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		panic(fmt.Sprintf("connection: non-io failure decoding a response header: %v", err))
	}
	return FromIO(err)
}

// isTimeout reports whether err denotes an expired deadline, either the
// portable sentinel or anything exposing the net.Error-style Timeout
// method.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
