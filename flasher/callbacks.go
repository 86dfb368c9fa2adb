package flasher

import "time"

// Progress phases, in pipeline order.
const (
	// PhaseConnecting is the reset, sync and detection handshake.
	PhaseConnecting = "connecting"

	// PhaseWriting is the block transfer into RAM or flash.
	PhaseWriting = "writing"

	// PhaseVerifying is the post-write digest check of flash regions.
	PhaseVerifying = "verifying"

	// PhaseComplete marks a finished operation.
	PhaseComplete = "complete"
)

// Progress describes how far a load operation has come. It is passed to
// the ProgressCallback as blocks go out.
type Progress struct {
	// Phase is one of the Phase constants.
	Phase string

	// CurrentBlock is the number of blocks transferred so far.
	CurrentBlock int

	// TotalBlocks is the number of blocks the operation will transfer.
	TotalBlocks int

	// Percentage is the completion percentage (0.0 to 100.0).
	Percentage float64

	// BytesWritten is the number of payload bytes sent so far.
	BytesWritten int

	// ElapsedTime is the time elapsed since the operation started.
	ElapsedTime time.Duration
}

// ProgressCallback is called as a load operation advances.
// Implementations should return quickly to avoid stalling the transfer.
//
// Example:
//
//	f, err := flasher.Connect(port,
//	    flasher.WithProgressCallback(func(p flasher.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface the flasher reports through.
// It matches structured loggers taking alternating key-value pairs, so a
// slog.Logger adapts in a few lines.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}
