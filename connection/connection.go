package connection

import (
	"io"
	"os"
	"time"

	"go.bug.st/serial"

	"github.com/moffa90/go-espflash/protocol"
	"github.com/moffa90/go-espflash/slip"
)

const (
	// DefaultBaudRate is the rate every ROM bootloader starts at.
	DefaultBaudRate = 115200

	// DefaultTimeout bounds a single read from the device.
	DefaultTimeout = 3 * time.Second
)

// SerialPort is the device endpoint a Connection drives. go.bug.st's
// serial.Port satisfies it; tests substitute scripted implementations.
type SerialPort interface {
	io.ReadWriteCloser

	SetMode(mode *serial.Mode) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Connection is a SLIP-framed serial link to a ROM bootloader. It is
// not safe for concurrent use; a device session is single-threaded.
type Connection struct {
	port    SerialPort
	reader  *slip.Reader
	writer  *slip.Writer
	name    string
	baud    int
	timeout time.Duration
}

// Open opens the named serial port at the given baud rate and wraps it
// in a Connection with the default read timeout.
func Open(name string, baud int) (*Connection, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, FromSerial(err)
	}

	c := New(port)
	c.name = name
	c.baud = baud
	if err := c.SetTimeout(DefaultTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an already-open port. The caller keeps responsibility for
// the port's mode and timeout until SetBaudRate or SetTimeout is called.
func New(port SerialPort) *Connection {
	if port == nil {
		panic("connection: port cannot be nil")
	}
	return &Connection{
		port:    port,
		reader:  slip.NewReader(&timeoutReader{port: port}),
		writer:  slip.NewWriter(port),
		baud:    DefaultBaudRate,
		timeout: DefaultTimeout,
	}
}

// Close closes the underlying port.
func (c *Connection) Close() error {
	if err := c.port.Close(); err != nil {
		return FromSerial(err)
	}
	return nil
}

// Name returns the port name, empty when the port was supplied open.
func (c *Connection) Name() string {
	return c.name
}

// BaudRate returns the rate the link currently runs at.
func (c *Connection) BaudRate() int {
	return c.baud
}

// Timeout returns the current read timeout.
func (c *Connection) Timeout() time.Duration {
	return c.timeout
}

// SetTimeout bounds how long a single read waits for device bytes.
func (c *Connection) SetTimeout(timeout time.Duration) error {
	if err := c.port.SetReadTimeout(timeout); err != nil {
		return FromSerial(err)
	}
	c.timeout = timeout
	return nil
}

// SetBaudRate switches the local end of the link to a new rate. The
// device must have been told first via the CHANGE_BAUDRATE command.
func (c *Connection) SetBaudRate(baud int) error {
	if err := c.port.SetMode(&serial.Mode{BaudRate: baud}); err != nil {
		return FromSerial(err)
	}
	c.baud = baud
	return nil
}

// ResetToBootloader drives the DTR/RTS dance that reboots the chip with
// its boot pin held, landing it in the ROM serial loader.
//
// The sequence assumes the usual auto-reset wiring: RTS to the chip
// enable pin, DTR to the boot pin, both through inverting transistors.
func (c *Connection) ResetToBootloader() error {
	steps := []struct {
		dtr, rts bool
		delay    time.Duration
	}{
		{dtr: false, rts: true, delay: 100 * time.Millisecond},
		{dtr: true, rts: false, delay: 50 * time.Millisecond},
		{dtr: false, rts: false, delay: 0},
	}
	for _, s := range steps {
		if err := c.port.SetDTR(s.dtr); err != nil {
			return FromSerial(err)
		}
		if err := c.port.SetRTS(s.rts); err != nil {
			return FromSerial(err)
		}
		time.Sleep(s.delay)
	}
	return c.ResetInputBuffer()
}

// HardReset reboots the chip into whatever is in flash.
func (c *Connection) HardReset() error {
	if err := c.port.SetDTR(false); err != nil {
		return FromSerial(err)
	}
	if err := c.port.SetRTS(true); err != nil {
		return FromSerial(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := c.port.SetRTS(false); err != nil {
		return FromSerial(err)
	}
	return nil
}

// ResetInputBuffer discards bytes already received from the device,
// both in the OS buffer and in the framing reader.
func (c *Connection) ResetInputBuffer() error {
	if err := c.port.ResetInputBuffer(); err != nil {
		return FromSerial(err)
	}
	c.reader = slip.NewReader(&timeoutReader{port: c.port})
	return nil
}

// WriteFrame sends one protocol frame, SLIP framed.
func (c *Connection) WriteFrame(frame []byte) error {
	if err := c.writer.WritePacket(frame); err != nil {
		return FromIO(err)
	}
	return nil
}

// ReadResponse reads frames until one carries the response direction
// byte and returns it decoded. Frames with any other direction are
// noise on a shared line and are skipped; the read timeout bounds the
// wait for each frame.
func (c *Connection) ReadResponse() (*protocol.Response, error) {
	for {
		frame, err := c.reader.ReadPacket()
		if err != nil {
			return nil, FromSLIP(err)
		}
		resp, err := protocol.ParseResponse(frame)
		if err != nil {
			return nil, FromBinary(err)
		}
		if resp.Direction != protocol.DirectionResponse {
			continue
		}
		return resp, nil
	}
}

// DrainResponses reads and discards buffered responses until the line
// goes quiet. Timeouts mean the line is drained; any other failure is
// returned.
func (c *Connection) DrainResponses() error {
	for {
		_, err := c.ReadResponse()
		if err == nil {
			continue
		}
		if _, ok := err.(*TimeoutError); ok {
			return nil
		}
		return err
	}
}

// ListPorts returns the serial ports present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, FromSerial(err)
	}
	return ports, nil
}

// timeoutReader adapts the serial library's timeout convention. An
// expired read timeout surfaces as a zero-length read with a nil error,
// which io.Reader consumers would treat as a live but empty read and
// retry forever. Mapping it to os.ErrDeadlineExceeded lets the framing
// reader stop and the classifier see a timeout.
type timeoutReader struct {
	port SerialPort
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	n, err := r.port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}
