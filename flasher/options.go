package flasher

import (
	"time"

	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/protocol"
)

// Config holds the flasher configuration.
type Config struct {
	// ProgressCallback is called during loads to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// Timeout bounds the wait for a single response frame
	Timeout time.Duration

	// ConnectAttempts is the number of sync attempts before giving up
	ConnectAttempts int

	// BlockSize is the payload size per FLASH_DATA command
	BlockSize int

	// VerifyFlash enables an MD5 check of every written flash region
	VerifyFlash bool

	// BaudRate is negotiated with the ROM after the handshake; zero
	// keeps the rate the port was opened at. The ROM always wakes up
	// at 115200.
	BaudRate int

	// FlashSize pins the flash capacity; zero detects it via the
	// JEDEC id
	FlashSize FlashSize
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Timeout:         connection.DefaultTimeout,
		ConnectAttempts: defaultConnectAttempts,
		BlockSize:       protocol.FlashBlockSize,
		VerifyFlash:     true,
	}
}

// Option is a functional option for configuring the Flasher.
type Option func(*Config)

// WithProgressCallback sets a callback function to track load progress.
//
// Example:
//
//	f, err := flasher.Connect(port,
//	    flasher.WithProgressCallback(func(p flasher.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for flasher operations.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets how long a single response read waits.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithTimeout(10*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithConnectAttempts sets the number of sync attempts made before the
// connection is reported as failed.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithConnectAttempts(10))
func WithConnectAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.ConnectAttempts = attempts
		}
	}
}

// WithBlockSize sets the payload size per FLASH_DATA command. The ROM
// rejects blocks larger than its default buffer, so sizes above it are
// ignored.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithBlockSize(0x200))
func WithBlockSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.FlashBlockSize {
			c.BlockSize = size
		}
	}
}

// WithVerifyFlash enables or disables the MD5 check of written flash
// regions. Default is true.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithVerifyFlash(false))
func WithVerifyFlash(verify bool) Option {
	return func(c *Config) {
		c.VerifyFlash = verify
	}
}

// WithBaudRate sets the rate negotiated with the ROM once the handshake
// completes.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithBaudRate(921600))
func WithBaudRate(rate int) Option {
	return func(c *Config) {
		if rate > 0 {
			c.BaudRate = rate
		}
	}
}

// WithFlashSize pins the flash capacity instead of detecting it through
// a JEDEC id read, for parts whose id falls outside the supported map.
//
// Example:
//
//	f, err := flasher.Connect(port, flasher.WithFlashSize(flasher.Flash8MB))
func WithFlashSize(size FlashSize) Option {
	return func(c *Config) {
		c.FlashSize = size
	}
}
