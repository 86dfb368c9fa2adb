// Package slip implements the SLIP framing used by Espressif ROM
// bootloaders on the serial line (RFC 1055, without the serial driver
// specifics). Packets are delimited by END bytes, and END or ESC bytes
// inside a packet are escaped with two-byte sequences.
package slip

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	// End delimits a packet on the wire.
	End = 0xC0

	// Esc introduces a two-byte escape sequence.
	Esc = 0xDB

	// EscEnd follows Esc to encode a literal End byte.
	EscEnd = 0xDC

	// EscEsc follows Esc to encode a literal Esc byte.
	EscEsc = 0xDD
)

// DefaultMaxPacketSize bounds decoded packets. ROM bootloader responses are
// far smaller; anything bigger means the stream is corrupt.
const DefaultMaxPacketSize = 4096

var (
	// ErrFraming reports an escape sequence that does not encode anything.
	ErrFraming = errors.New("slip: invalid framing")

	// ErrOversizedPacket reports a packet larger than the reader's limit.
	ErrOversizedPacket = errors.New("slip: packet too large for buffer")

	// ErrEndOfStream reports that the stream ended before a packet was
	// fully delimited.
	ErrEndOfStream = errors.New("slip: unexpected end of stream")
)

// Writer frames packets onto an underlying stream.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing packets onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WritePacket writes p as a single SLIP frame. Errors come from the
// underlying writer unchanged.
func (w *Writer) WritePacket(p []byte) error {
	buf := make([]byte, 0, len(p)+2)
	buf = append(buf, End)
	for _, b := range p {
		switch b {
		case End:
			buf = append(buf, Esc, EscEnd)
		case Esc:
			buf = append(buf, Esc, EscEsc)
		default:
			buf = append(buf, b)
		}
	}
	buf = append(buf, End)
	_, err := w.w.Write(buf)
	return err
}

// Reader decodes SLIP frames from an underlying stream. Bytes between
// frames are discarded, which skips the boot chatter ROMs print on the
// same line before the first frame.
type Reader struct {
	br *bufio.Reader

	// MaxPacketSize bounds a single decoded packet. Larger packets fail
	// with ErrOversizedPacket.
	MaxPacketSize int
}

// NewReader returns a Reader decoding frames from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		br:            bufio.NewReader(r),
		MaxPacketSize: DefaultMaxPacketSize,
	}
}

// ReadPacket reads and unescapes the next frame. It returns
// ErrEndOfStream when the stream ends before a frame completes,
// ErrFraming on an invalid escape sequence, ErrOversizedPacket when the
// frame exceeds MaxPacketSize, and wraps any underlying read error.
func (r *Reader) ReadPacket() ([]byte, error) {
	packet := make([]byte, 0, 64)
	inFrame := false
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return nil, readError(err)
		}
		if !inFrame {
			if b == End {
				inFrame = true
			}
			continue
		}
		switch b {
		case End:
			// Back-to-back delimiters produce empty frames; skip them.
			if len(packet) == 0 {
				continue
			}
			return packet, nil
		case Esc:
			next, err := r.br.ReadByte()
			if err != nil {
				return nil, readError(err)
			}
			switch next {
			case EscEnd:
				b = End
			case EscEsc:
				b = Esc
			default:
				return nil, ErrFraming
			}
		}
		if len(packet) >= r.MaxPacketSize {
			return nil, ErrOversizedPacket
		}
		packet = append(packet, b)
	}
}

func readError(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrEndOfStream
	}
	return fmt.Errorf("slip: read: %w", err)
}
