package flasher

import (
	"testing"
	"time"

	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/protocol"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Timeout != connection.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, connection.DefaultTimeout)
	}
	if cfg.ConnectAttempts != defaultConnectAttempts {
		t.Errorf("ConnectAttempts = %d, want %d", cfg.ConnectAttempts, defaultConnectAttempts)
	}
	if cfg.BlockSize != protocol.FlashBlockSize {
		t.Errorf("BlockSize = %d, want %d", cfg.BlockSize, protocol.FlashBlockSize)
	}
	if !cfg.VerifyFlash {
		t.Error("VerifyFlash disabled by default")
	}
	if cfg.BaudRate != 0 {
		t.Errorf("BaudRate = %d, want 0 (keep the open rate)", cfg.BaudRate)
	}
}

// Out-of-range values leave the defaults untouched instead of failing
// later in the pipeline.
func TestOptionGuards(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		check func(t *testing.T, cfg Config)
	}{
		{
			name: "zero timeout ignored",
			opt:  WithTimeout(0),
			check: func(t *testing.T, cfg Config) {
				if cfg.Timeout != connection.DefaultTimeout {
					t.Errorf("Timeout = %v", cfg.Timeout)
				}
			},
		},
		{
			name: "negative attempts ignored",
			opt:  WithConnectAttempts(-1),
			check: func(t *testing.T, cfg Config) {
				if cfg.ConnectAttempts != defaultConnectAttempts {
					t.Errorf("ConnectAttempts = %d", cfg.ConnectAttempts)
				}
			},
		},
		{
			name: "oversized block ignored",
			opt:  WithBlockSize(protocol.FlashBlockSize * 2),
			check: func(t *testing.T, cfg Config) {
				if cfg.BlockSize != protocol.FlashBlockSize {
					t.Errorf("BlockSize = %d", cfg.BlockSize)
				}
			},
		},
		{
			name: "zero block ignored",
			opt:  WithBlockSize(0),
			check: func(t *testing.T, cfg Config) {
				if cfg.BlockSize != protocol.FlashBlockSize {
					t.Errorf("BlockSize = %d", cfg.BlockSize)
				}
			},
		},
		{
			name: "negative baud ignored",
			opt:  WithBaudRate(-9600),
			check: func(t *testing.T, cfg Config) {
				if cfg.BaudRate != 0 {
					t.Errorf("BaudRate = %d", cfg.BaudRate)
				}
			},
		},
		{
			name: "timeout applied",
			opt:  WithTimeout(10 * time.Second),
			check: func(t *testing.T, cfg Config) {
				if cfg.Timeout != 10*time.Second {
					t.Errorf("Timeout = %v", cfg.Timeout)
				}
			},
		},
		{
			name: "verify disabled",
			opt:  WithVerifyFlash(false),
			check: func(t *testing.T, cfg Config) {
				if cfg.VerifyFlash {
					t.Error("VerifyFlash still enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.opt(&cfg)
			tt.check(t, cfg)
		})
	}
}
