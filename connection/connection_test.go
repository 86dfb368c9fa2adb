package connection

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/moffa90/go-espflash/protocol"
	"github.com/moffa90/go-espflash/slip"
)

// mockPort is a scripted serial port. Reads consume a pre-loaded buffer
// and mimic the library's timeout convention by returning a zero-length
// read once the script runs out.
type mockPort struct {
	readBuf  bytes.Buffer
	writeBuf bytes.Buffer
	pins     []string
	mode     *serial.Mode
	timeout  time.Duration
	resets   int
	closed   bool
}

func (m *mockPort) Read(p []byte) (int, error) {
	if m.readBuf.Len() == 0 {
		return 0, nil
	}
	return m.readBuf.Read(p)
}

func (m *mockPort) Write(p []byte) (int, error) {
	return m.writeBuf.Write(p)
}

func (m *mockPort) Close() error {
	m.closed = true
	return nil
}

func (m *mockPort) SetMode(mode *serial.Mode) error {
	m.mode = mode
	return nil
}

func (m *mockPort) SetDTR(dtr bool) error {
	m.pins = append(m.pins, fmt.Sprintf("dtr=%t", dtr))
	return nil
}

func (m *mockPort) SetRTS(rts bool) error {
	m.pins = append(m.pins, fmt.Sprintf("rts=%t", rts))
	return nil
}

func (m *mockPort) SetReadTimeout(t time.Duration) error {
	m.timeout = t
	return nil
}

func (m *mockPort) ResetInputBuffer() error {
	m.resets++
	m.readBuf.Reset()
	return nil
}

// script frames payload with SLIP and appends it to the port's read
// buffer.
func (m *mockPort) script(t *testing.T, payload []byte) {
	t.Helper()
	w := slip.NewWriter(&m.readBuf)
	if err := w.WritePacket(payload); err != nil {
		t.Fatalf("scripting packet: %v", err)
	}
}

// responsePayload builds a raw response frame body.
func responsePayload(op protocol.Command, value uint32, data []byte, status, code byte) []byte {
	payload := make([]byte, 8, 10+len(data))
	payload[0] = protocol.DirectionResponse
	payload[1] = byte(op)
	binary.LittleEndian.PutUint16(payload[2:4], uint16(len(data)+2))
	binary.LittleEndian.PutUint32(payload[4:8], value)
	payload = append(payload, data...)
	payload = append(payload, status, code)
	return payload
}

func TestNewPanicsOnNilPort(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic, got none")
		}
	}()
	New(nil)
}

func TestWriteFrame(t *testing.T) {
	port := &mockPort{}
	conn := New(port)

	frame := protocol.BuildSyncRequest()
	if err := conn.WriteFrame(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := port.writeBuf.Bytes()
	if len(wire) < 2 || wire[0] != slip.End || wire[len(wire)-1] != slip.End {
		t.Fatalf("frame is not SLIP delimited: % X", wire)
	}

	// Round-trip through a reader recovers the original frame.
	r := slip.NewReader(bytes.NewReader(wire))
	got, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("round-tripped frame = % X, want % X", got, frame)
	}
}

func TestReadResponse(t *testing.T) {
	port := &mockPort{}
	port.script(t, responsePayload(protocol.CommandReadReg, 0x12345678, nil, protocol.StatusSuccess, 0))

	conn := New(port)
	resp, err := conn.ReadResponse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Opcode != protocol.CommandReadReg {
		t.Errorf("opcode = %v, want READ_REG", resp.Opcode)
	}
	if resp.Value != 0x12345678 {
		t.Errorf("value = %#x, want 0x12345678", resp.Value)
	}
	if resp.Status != protocol.StatusSuccess {
		t.Errorf("status = %d, want success", resp.Status)
	}
}

// Frames with a non-response direction byte are skipped, not errors.
func TestReadResponseSkipsNonResponseFrames(t *testing.T) {
	port := &mockPort{}
	port.script(t, protocol.BuildSyncRequest())
	port.script(t, responsePayload(protocol.CommandSync, 0, nil, protocol.StatusSuccess, 0))

	conn := New(port)
	resp, err := conn.ReadResponse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Opcode != protocol.CommandSync {
		t.Errorf("opcode = %v, want SYNC", resp.Opcode)
	}
}

// A silent device classifies as an unattributed timeout.
func TestReadResponseTimeout(t *testing.T) {
	conn := New(&mockPort{})

	_, err := conn.ReadResponse()
	timeout, ok := err.(*TimeoutError)
	if !ok {
		t.Fatalf("error = %T (%v), want *TimeoutError", err, err)
	}
	if timeout.Command.Known() {
		t.Error("transport attributed a command it cannot know")
	}
}

func TestDrainResponses(t *testing.T) {
	port := &mockPort{}
	port.script(t, responsePayload(protocol.CommandSync, 0, nil, protocol.StatusSuccess, 0))
	port.script(t, responsePayload(protocol.CommandSync, 0, nil, protocol.StatusSuccess, 0))

	conn := New(port)
	if err := conn.DrainResponses(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port.readBuf.Len() != 0 {
		t.Errorf("%d bytes left unread", port.readBuf.Len())
	}
}

func TestResetToBootloader(t *testing.T) {
	port := &mockPort{}
	conn := New(port)

	if err := conn.ResetToBootloader(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"dtr=false", "rts=true",
		"dtr=true", "rts=false",
		"dtr=false", "rts=false",
	}
	if len(port.pins) != len(want) {
		t.Fatalf("pin transitions = %v, want %v", port.pins, want)
	}
	for i, w := range want {
		if port.pins[i] != w {
			t.Errorf("transition[%d] = %s, want %s", i, port.pins[i], w)
		}
	}
	if port.resets != 1 {
		t.Errorf("input buffer resets = %d, want 1", port.resets)
	}
}

func TestHardReset(t *testing.T) {
	port := &mockPort{}
	conn := New(port)

	if err := conn.HardReset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"dtr=false", "rts=true", "rts=false"}
	if len(port.pins) != len(want) {
		t.Fatalf("pin transitions = %v, want %v", port.pins, want)
	}
	for i, w := range want {
		if port.pins[i] != w {
			t.Errorf("transition[%d] = %s, want %s", i, port.pins[i], w)
		}
	}
}

func TestSetBaudRate(t *testing.T) {
	port := &mockPort{}
	conn := New(port)

	if err := conn.SetBaudRate(921600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port.mode == nil || port.mode.BaudRate != 921600 {
		t.Errorf("port mode = %+v, want baud 921600", port.mode)
	}
	if conn.BaudRate() != 921600 {
		t.Errorf("BaudRate() = %d, want 921600", conn.BaudRate())
	}
}

func TestSetTimeout(t *testing.T) {
	port := &mockPort{}
	conn := New(port)

	if err := conn.SetTimeout(500 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port.timeout != 500*time.Millisecond {
		t.Errorf("port timeout = %v, want 500ms", port.timeout)
	}
	if conn.Timeout() != 500*time.Millisecond {
		t.Errorf("Timeout() = %v, want 500ms", conn.Timeout())
	}
}

// Stale bytes buffered before a reset must not leak into reads made
// after it.
func TestResetInputBufferDropsBufferedFrames(t *testing.T) {
	port := &mockPort{}
	port.script(t, responsePayload(protocol.CommandSync, 0, nil, protocol.StatusSuccess, 0))

	conn := New(port)
	if err := conn.ResetInputBuffer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := conn.ReadResponse(); err == nil {
		t.Fatal("expected timeout after reset, got a frame")
	}
}

func TestClose(t *testing.T) {
	port := &mockPort{}
	conn := New(port)

	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !port.closed {
		t.Error("underlying port was not closed")
	}
}
