package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/flasher"
	"github.com/moffa90/go-espflash/image"
)

// ErrInvalidConfig is wrapped by every validation failure, so callers can
// tell a bad configuration apart from a file that could not be read.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings for the espflash command line tools.
type Config struct {
	// Connection holds the serial link settings.
	Connection ConnectionConfig `toml:"connection"`

	// Flash holds overrides for the on-device flash chip.
	Flash FlashConfig `toml:"flash"`

	// PartitionTable is the path of a partition table, CSV or binary,
	// written alongside the firmware image when flashing. Empty means
	// no table is written.
	PartitionTable string `toml:"partition_table"`

	// Format names the image format used when a command does not name
	// one explicitly. Empty means the chip's default format.
	Format string `toml:"format"`
}

// ConnectionConfig holds the serial link settings.
type ConnectionConfig struct {
	// Port is the serial device, for example /dev/ttyUSB0. Empty lets
	// the tools pick the port when exactly one is present.
	Port string `toml:"port"`

	// Baud is the line speed used while flashing. Speeds above the ROM
	// default are negotiated after the initial sync.
	Baud int `toml:"baud"`
}

// FlashConfig holds overrides for the on-device flash chip.
type FlashConfig struct {
	// Size pins the flash capacity, for example "4MB", instead of
	// detecting it through a JEDEC id read. Empty means detect.
	Size string `toml:"size"`
}

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Baud: connection.DefaultBaudRate,
		},
	}
}

// Paths returns the locations searched for a configuration file when none
// is given explicitly, in priority order.
func Paths() []string {
	paths := []string{"espflash.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "espflash", "espflash.toml"))
	}
	return paths
}

// Validate checks the configuration for values no command could accept.
// Failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Connection.Baud <= 0 {
		return fmt.Errorf("%w: baud rate must be positive, got %d", ErrInvalidConfig, c.Connection.Baud)
	}
	if c.Flash.Size != "" {
		if _, ok := flasher.ParseFlashSize(c.Flash.Size); !ok {
			return fmt.Errorf("%w: unrecognized flash size %q", ErrInvalidConfig, c.Flash.Size)
		}
	}
	if c.Format != "" {
		if _, ok := image.ParseFormat(c.Format); !ok {
			return fmt.Errorf("%w: unrecognized image format %q", ErrInvalidConfig, c.Format)
		}
	}
	return nil
}
