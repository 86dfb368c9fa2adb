package flasher

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/image"
	"github.com/moffa90/go-espflash/protocol"
)

const (
	// defaultConnectAttempts is how many sync attempts a Connect makes.
	defaultConnectAttempts = 7

	// syncTimeout bounds each response read during the sync handshake.
	// The ROM answers within milliseconds once it is listening; waiting
	// longer only slows down the retry loop.
	syncTimeout = 100 * time.Millisecond

	// maxResponseReads bounds how many stray frames a command skips
	// while waiting for its own response.
	maxResponseReads = 100

	// spiPollLimit bounds the polls for a SPI transaction to finish.
	spiPollLimit = 10
)

// SPI controller bits used to run a raw flash command through the ROM.
const (
	spiUsrCommandBit = 1 << 31
	spiUsrMisoBit    = 1 << 28
	spiCmdUsrBit     = 1 << 18

	// spiCmdRDID is the JEDEC read-identification flash command.
	spiCmdRDID = 0x9F
)

// FlashSize identifies the capacity of the attached SPI flash. The value
// is the size byte of the JEDEC flash id, the base-2 logarithm of the
// capacity.
type FlashSize byte

// Supported flash capacities.
const (
	Flash256KB FlashSize = 0x12
	Flash512KB FlashSize = 0x13
	Flash1MB   FlashSize = 0x14
	Flash2MB   FlashSize = 0x15
	Flash4MB   FlashSize = 0x16
	Flash8MB   FlashSize = 0x17
	Flash16MB  FlashSize = 0x18
)

// FlashSizeFromID maps a JEDEC size id onto a FlashSize. Unknown ids
// come back as *UnsupportedFlashError.
func FlashSizeFromID(id byte) (FlashSize, error) {
	switch FlashSize(id) {
	case Flash256KB, Flash512KB, Flash1MB, Flash2MB, Flash4MB, Flash8MB, Flash16MB:
		return FlashSize(id), nil
	default:
		return 0, &UnsupportedFlashError{Err: &FlashDetectError{ID: id}}
	}
}

// ParseFlashSize resolves a capacity name like "4MB" onto a FlashSize.
func ParseFlashSize(name string) (FlashSize, bool) {
	switch strings.ToUpper(name) {
	case "256KB":
		return Flash256KB, true
	case "512KB":
		return Flash512KB, true
	case "1MB":
		return Flash1MB, true
	case "2MB":
		return Flash2MB, true
	case "4MB":
		return Flash4MB, true
	case "8MB":
		return Flash8MB, true
	case "16MB":
		return Flash16MB, true
	default:
		return 0, false
	}
}

// String returns the conventional size name.
func (s FlashSize) String() string {
	switch s {
	case Flash256KB:
		return "256KB"
	case Flash512KB:
		return "512KB"
	case Flash1MB:
		return "1MB"
	case Flash2MB:
		return "2MB"
	case Flash4MB:
		return "4MB"
	case Flash8MB:
		return "8MB"
	case Flash16MB:
		return "16MB"
	default:
		return fmt.Sprintf("flash(%#x)", byte(s))
	}
}

// Bytes returns the capacity in bytes.
func (s FlashSize) Bytes() uint32 {
	return 1 << uint(s)
}

// Flasher runs a flashing session against one device: it owns the serial
// connection, knows which chip answered the handshake and drives the
// load operations. Sessions are synchronous; a Flasher must not be used
// from multiple goroutines at once.
type Flasher struct {
	conn      *connection.Connection
	config    Config
	chip      image.Chip
	flashSize FlashSize
}

// Connect opens the named serial port and performs the full bootloader
// handshake: reset into the ROM loader, sync, chip detection and flash
// detection. The port is closed again if any step fails.
//
// Example:
//
//	f, err := flasher.Connect("/dev/ttyUSB0", flasher.WithBaudRate(921600))
func Connect(port string, opts ...Option) (*Flasher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, err := connection.Open(port, connection.DefaultBaudRate)
	if err != nil {
		return nil, lift(err)
	}

	f, err := newFlasher(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return f, nil
}

// New performs the bootloader handshake over an existing connection.
// The caller keeps ownership of the connection when the handshake
// fails.
func New(conn *connection.Connection, opts ...Option) (*Flasher, error) {
	if conn == nil {
		panic("flasher: connection cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFlasher(conn, cfg)
}

func newFlasher(conn *connection.Connection, cfg Config) (*Flasher, error) {
	f := &Flasher{conn: conn, config: cfg}

	if err := conn.SetTimeout(cfg.Timeout); err != nil {
		return nil, lift(err)
	}

	f.reportProgress(Progress{Phase: PhaseConnecting})

	if err := f.connect(); err != nil {
		return nil, err
	}
	if err := f.detectChip(); err != nil {
		return nil, err
	}
	if err := f.enableFlash(); err != nil {
		return nil, err
	}
	if err := f.detectFlash(); err != nil {
		return nil, err
	}
	if err := f.setFlashParams(); err != nil {
		return nil, err
	}
	if cfg.BaudRate != 0 && cfg.BaudRate != conn.BaudRate() {
		if err := f.ChangeBaud(cfg.BaudRate); err != nil {
			return nil, err
		}
	}

	f.logInfo("connected",
		"chip", f.chip.String(),
		"flash_size", f.flashSize.String(),
	)
	return f, nil
}

// Close releases the serial port.
func (f *Flasher) Close() error {
	return lift(f.conn.Close())
}

// Chip returns the chip detected during the handshake.
func (f *Flasher) Chip() image.Chip {
	return f.chip
}

// FlashSize returns the flash capacity detected during the handshake.
func (f *Flasher) FlashSize() FlashSize {
	return f.flashSize
}

// HardReset restarts the device so it boots the flashed application.
func (f *Flasher) HardReset() error {
	return lift(f.conn.HardReset())
}

// ChangeBaud negotiates a new transfer rate with the ROM and switches
// the local port to match.
func (f *Flasher) ChangeBaud(rate int) error {
	_, err := f.command(protocol.CommandChangeBaudrate,
		protocol.BuildChangeBaudrateRequest(uint32(rate), uint32(f.conn.BaudRate())))
	if err != nil {
		return err
	}
	if err := f.conn.SetBaudRate(rate); err != nil {
		return lift(err)
	}
	// The ROM prints a switch notice at the new rate; drop it.
	if err := f.conn.ResetInputBuffer(); err != nil {
		return lift(err)
	}
	f.logDebug("baud rate changed", "rate", rate)
	return nil
}

// connect resets the device into its ROM loader and syncs the serial
// link. Only attempts that time out are retried: a device that answers
// wrongly will not answer better next time.
func (f *Flasher) connect() error {
	if err := f.conn.ResetToBootloader(); err != nil {
		return lift(err)
	}

	for attempt := 1; attempt <= f.config.ConnectAttempts; attempt++ {
		err := f.sync()
		if err == nil {
			f.logDebug("sync complete", "attempt", attempt)
			return nil
		}
		var timeout *connection.TimeoutError
		if !errors.As(err, &timeout) {
			return err
		}
		f.logDebug("sync attempt timed out", "attempt", attempt)
	}
	return &StageError{Stage: StageConnecting, Err: &connection.ConnectionFailedError{}}
}

// sync runs one SYNC exchange under a short read deadline. The ROM
// answers a single sync request with a burst of identical responses;
// the surplus is drained so later commands see a clean stream.
func (f *Flasher) sync() error {
	old := f.conn.Timeout()
	if err := f.conn.SetTimeout(syncTimeout); err != nil {
		return lift(err)
	}
	defer f.conn.SetTimeout(old)

	if _, err := f.command(protocol.CommandSync, protocol.BuildSyncRequest()); err != nil {
		return err
	}
	if err := f.conn.DrainResponses(); err != nil {
		return lift(err)
	}
	return nil
}

// detectChip identifies the chip from its magic register.
func (f *Flasher) detectChip() error {
	magic, err := f.readReg(image.ChipDetectRegister)
	if err != nil {
		return err
	}
	chip, ok := image.ChipFromMagic(magic)
	if !ok {
		return &UnrecognizedChipError{Err: &ChipDetectError{Magic: magic}}
	}
	f.chip = chip
	f.logDebug("chip detected", "chip", chip.String(), "magic", fmt.Sprintf("%#x", magic))
	return nil
}

// enableFlash attaches the SPI flash to the ROM loader. The esp8266 ROM
// has no SPI_ATTACH command; an empty FLASH_BEGIN puts its flash driver
// into a usable state instead.
func (f *Flasher) enableFlash() error {
	var err error
	if f.chip == image.ChipESP8266 {
		_, err = f.command(protocol.CommandFlashBegin,
			protocol.BuildFlashBeginRequest(0, 0, uint32(f.config.BlockSize), 0))
	} else {
		_, err = f.command(protocol.CommandSpiAttach, protocol.BuildSpiAttachRequest(0))
	}
	if err != nil {
		f.logError("flash attach failed", "error", err.Error())
		return &FlashConnectError{}
	}
	return nil
}

// detectFlash reads the JEDEC id off the attached flash and records the
// capacity. The size id is the third id byte. A pinned size skips the id
// transaction entirely.
func (f *Flasher) detectFlash() error {
	if f.config.FlashSize != 0 {
		f.flashSize = f.config.FlashSize
		f.logDebug("flash size pinned", "size", f.flashSize.String())
		return nil
	}
	id, err := f.flashID()
	if err != nil {
		return err
	}
	size, err := FlashSizeFromID(byte(id >> 16))
	if err != nil {
		return err
	}
	f.flashSize = size
	f.logDebug("flash detected", "id", fmt.Sprintf("%#06x", id), "size", size.String())
	return nil
}

// setFlashParams tells the ROM the detected flash geometry. The esp8266
// ROM predates SPI_SET_PARAMS.
func (f *Flasher) setFlashParams() error {
	if f.chip == image.ChipESP8266 {
		return nil
	}
	_, err := f.command(protocol.CommandSpiSetParams,
		protocol.BuildSpiSetParamsRequest(f.flashSize.Bytes()))
	return err
}

// flashID runs a JEDEC RDID transaction through the chip's SPI
// controller, using WRITE_REG and READ_REG to drive the registers the
// way the ROM's own flash driver would, and returns the 24-bit id left
// in the data buffer.
func (f *Flasher) flashID() (uint32, error) {
	const readBits = 24
	regs := f.chip.SPIRegisters()

	oldUsr, err := f.readReg(regs.Usr)
	if err != nil {
		return 0, err
	}
	oldUsr2, err := f.readReg(regs.Usr2)
	if err != nil {
		return 0, err
	}

	if err := f.writeReg(regs.Usr, spiUsrCommandBit|spiUsrMisoBit); err != nil {
		return 0, err
	}
	// 8 command bits, encoded as length minus one in the top nibble.
	if err := f.writeReg(regs.Usr2, 7<<28|spiCmdRDID); err != nil {
		return 0, err
	}
	if regs.MisoDlen != 0 {
		if err := f.writeReg(regs.MisoDlen, readBits-1); err != nil {
			return 0, err
		}
	} else {
		// The esp8266 encodes transfer lengths in USR1 instead.
		if err := f.writeReg(regs.Usr1, (readBits-1)<<8); err != nil {
			return 0, err
		}
	}
	if err := f.writeReg(regs.W0, 0); err != nil {
		return 0, err
	}
	if err := f.writeReg(regs.Cmd, spiCmdUsrBit); err != nil {
		return 0, err
	}

	// The transaction finishes in microseconds; poll the USR bit a few
	// times before calling the controller stuck.
	for i := 0; ; i++ {
		cmd, err := f.readReg(regs.Cmd)
		if err != nil {
			return 0, err
		}
		if cmd&spiCmdUsrBit == 0 {
			break
		}
		if i >= spiPollLimit {
			return 0, &StageError{Stage: StageConnecting, Err: &connection.TimeoutError{}}
		}
		time.Sleep(time.Millisecond)
	}

	id, err := f.readReg(regs.W0)
	if err != nil {
		return 0, err
	}

	// Put the controller back the way the ROM had it.
	if err := f.writeReg(regs.Usr, oldUsr); err != nil {
		return 0, err
	}
	if err := f.writeReg(regs.Usr2, oldUsr2); err != nil {
		return 0, err
	}
	return id, nil
}

// command sends one request and waits for the ROM's answer to it,
// skipping responses to earlier commands still buffered in the stream.
// A failure status becomes a *RomFailureError. Timeouts are attributed
// to cmd here; the layers below never know the command.
func (f *Flasher) command(cmd protocol.Command, frame []byte) (*protocol.Response, error) {
	resp, err := f.exchange(cmd, frame)
	if err != nil {
		return nil, ForCommand(err, cmd)
	}
	return resp, nil
}

func (f *Flasher) exchange(cmd protocol.Command, frame []byte) (*protocol.Response, error) {
	if err := f.conn.WriteFrame(frame); err != nil {
		return nil, lift(err)
	}

	for i := 0; i < maxResponseReads; i++ {
		resp, err := f.conn.ReadResponse()
		if err != nil {
			return nil, lift(err)
		}
		if resp.Opcode != cmd {
			// Response to an earlier command; keep reading.
			continue
		}
		if resp.Status != protocol.StatusSuccess {
			return nil, &RomFailureError{
				Err: protocol.NewRomError(cmd, protocol.RomErrorKindFromCode(resp.Error)),
			}
		}
		return resp, nil
	}
	// The device talks but never about cmd; treat it like silence.
	return nil, &StageError{Stage: StageConnecting, Err: &connection.TimeoutError{}}
}

// readReg reads a 32-bit device register.
func (f *Flasher) readReg(addr uint32) (uint32, error) {
	resp, err := f.command(protocol.CommandReadReg, protocol.BuildReadRegRequest(addr))
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// writeReg writes a 32-bit device register.
func (f *Flasher) writeReg(addr, value uint32) error {
	_, err := f.command(protocol.CommandWriteReg,
		protocol.BuildWriteRegRequest(addr, value, 0xFFFFFFFF, 0))
	return err
}

// lift tags a classified connection failure with the connecting stage.
// Values that are not connection failures pass through unchanged.
func lift(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(connection.Error); ok {
		return &StageError{Stage: StageConnecting, Err: ce}
	}
	return err
}

// reportProgress calls the progress callback if configured.
func (f *Flasher) reportProgress(progress Progress) {
	if f.config.ProgressCallback != nil {
		f.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (f *Flasher) logDebug(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (f *Flasher) logInfo(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (f *Flasher) logError(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Error(msg, keysAndValues...)
	}
}
