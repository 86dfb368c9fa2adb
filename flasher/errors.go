package flasher

import (
	"fmt"
	"strings"

	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/image"
	"github.com/moffa90/go-espflash/partition"
	"github.com/moffa90/go-espflash/protocol"
)

// Error is the top-level failure taxonomy of the flashing pipeline. The
// implementation set is closed: transport failures arrive as *StageError,
// everything else is a leaf diagnostic constructed at the point the
// pipeline rejects the device or its inputs.
type Error interface {
	error

	// flasherError seals the set of implementations.
	flasherError()
}

func (*StageError) flasherError()                   {}
func (*InvalidElfError) flasherError()              {}
func (*ElfNotRamLoadableError) flasherError()       {}
func (*RomFailureError) flasherError()              {}
func (*UnrecognizedChipError) flasherError()        {}
func (*UnsupportedFlashError) flasherError()        {}
func (*FlashConnectError) flasherError()            {}
func (*MalformedPartitionTableError) flasherError() {}
func (*UnsupportedImageFormatError) flasherError()  {}
func (*UnknownImageFormatError) flasherError()      {}
func (*InvalidDirectBootError) flasherError()       {}
func (*FlashVerifyError) flasherError()             {}

// Stage names the pipeline phase a connection failure was observed in.
type Stage int

const (
	// StageConnecting covers port open, reset and the sync handshake.
	StageConnecting Stage = iota

	// StageFlashing covers data transfer after a completed handshake.
	StageFlashing
)

// String returns the lowercase name of the stage.
func (s Stage) String() string {
	if s == StageFlashing {
		return "flashing"
	}
	return "connecting"
}

// StageError is a classified connection failure tagged with the pipeline
// stage it interrupted. The stage is context, not a diagnostic class of
// its own: code and hint surface from the wrapped failure through the
// unwrap chain.
type StageError struct {
	// Stage is the phase the failure was observed in.
	Stage Stage

	// Err is the classified connection failure.
	Err connection.Error
}

func (e *StageError) Error() string {
	if e.Stage == StageFlashing {
		return fmt.Sprintf("communication error while flashing device: %v", e.Err)
	}
	return fmt.Sprintf("error while connecting to device: %v", e.Err)
}

// Unwrap exposes the connection failure carrying the diagnostic metadata.
func (e *StageError) Unwrap() error {
	return e.Err
}

// InvalidElfError reports firmware that could not be loaded as an ELF
// image.
type InvalidElfError struct {
	// Err is the image loader's reason.
	Err error
}

func (e *InvalidElfError) Error() string {
	return fmt.Sprintf("supplied elf image is not valid: %v", e.Err)
}

// Unwrap exposes the loader's reason.
func (e *InvalidElfError) Unwrap() error {
	return e.Err
}

// DiagnosticCode returns the error's stable identifier.
func (e *InvalidElfError) DiagnosticCode() string {
	return "espflash.invalid_elf"
}

// Hint suggests a remediation.
func (e *InvalidElfError) Hint() string {
	return "Try cleaning the build directory and rebuilding the image"
}

// ElfNotRamLoadableError reports an image that cannot run from RAM
// because some of its segments map to flash addresses.
type ElfNotRamLoadableError struct{}

func (e *ElfNotRamLoadableError) Error() string {
	return "supplied elf image cannot be run from ram as it includes segments mapped to rom addresses"
}

// DiagnosticCode returns the error's stable identifier.
func (e *ElfNotRamLoadableError) DiagnosticCode() string {
	return "espflash.not_ram_loadable"
}

// Hint suggests a remediation.
func (e *ElfNotRamLoadableError) Hint() string {
	return "Either build the binary to be all in ram or load the image to flash instead"
}

// RomFailureError reports a failure status the ROM returned for a
// command. The diagnostic code comes from the classified status code.
type RomFailureError struct {
	// Err pairs the command with the classified ROM status code.
	Err *protocol.RomError
}

func (e *RomFailureError) Error() string {
	return fmt.Sprintf("the bootloader returned an error: %v", e.Err)
}

// Unwrap exposes the ROM failure carrying the diagnostic code.
func (e *RomFailureError) Unwrap() error {
	return e.Err
}

// ChipDetectError reports a magic register value no supported chip
// announces.
type ChipDetectError struct {
	// Magic is the rejected register value.
	Magic uint32
}

func (e *ChipDetectError) Error() string {
	return fmt.Sprintf("unrecognized magic value %#x", e.Magic)
}

// UnrecognizedChipError reports a device whose detect magic matches no
// supported chip.
type UnrecognizedChipError struct {
	// Err carries the rejected magic value.
	Err *ChipDetectError
}

func (e *UnrecognizedChipError) Error() string {
	return fmt.Sprintf("chip not recognized, supported chip types are esp8266, esp32 and esp32-c3: %v", e.Err)
}

// Unwrap exposes the rejected magic value.
func (e *UnrecognizedChipError) Unwrap() error {
	return e.Err
}

// DiagnosticCode returns the error's stable identifier.
func (e *UnrecognizedChipError) DiagnosticCode() string {
	return "espflash.unrecognized_chip"
}

// Hint suggests a remediation.
func (e *UnrecognizedChipError) Hint() string {
	return "If your chip is supported, try hard-resetting the device and try again"
}

// FlashDetectError reports a flash id byte outside the supported size
// range.
type FlashDetectError struct {
	// ID is the rejected size byte of the JEDEC flash id.
	ID byte
}

func (e *FlashDetectError) Error() string {
	return fmt.Sprintf("unrecognized flash id %#x", e.ID)
}

// UnsupportedFlashError reports a flash chip whose JEDEC id maps to no
// supported size.
type UnsupportedFlashError struct {
	// Err carries the rejected flash id.
	Err *FlashDetectError
}

func (e *UnsupportedFlashError) Error() string {
	return fmt.Sprintf("flash chip not supported, flash sizes from 256KB to 16MB are supported: %v", e.Err)
}

// Unwrap exposes the rejected flash id.
func (e *UnsupportedFlashError) Unwrap() error {
	return e.Err
}

// DiagnosticCode returns the error's stable identifier.
func (e *UnsupportedFlashError) DiagnosticCode() string {
	return "espflash.unrecognized_flash"
}

// FlashConnectError reports that the ROM loader could not attach the
// on-device SPI flash.
type FlashConnectError struct{}

func (e *FlashConnectError) Error() string {
	return "failed to connect to on-device flash"
}

// DiagnosticCode returns the error's stable identifier.
func (e *FlashConnectError) DiagnosticCode() string {
	return "espflash.flash_connect"
}

// MalformedPartitionTableError lifts a partition table diagnostic into
// the flashing taxonomy. It is fully transparent: message, code, hint
// and source spans all come from the wrapped diagnostic.
type MalformedPartitionTableError struct {
	// Err is the partition table diagnostic.
	Err partition.TableError
}

func (e *MalformedPartitionTableError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the table diagnostic carrying the metadata.
func (e *MalformedPartitionTableError) Unwrap() error {
	return e.Err
}

// UnsupportedImageFormatError lifts the image package's format/chip
// mismatch into the flashing taxonomy. It is fully transparent.
type UnsupportedImageFormatError struct {
	// Err is the image package's diagnostic.
	Err *image.UnsupportedImageFormatError
}

func (e *UnsupportedImageFormatError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the image diagnostic carrying the metadata.
func (e *UnsupportedImageFormatError) Unwrap() error {
	return e.Err
}

// UnknownImageFormatError reports an image format name this build does
// not know.
type UnknownImageFormatError struct {
	// Format is the unrecognized name as the user supplied it.
	Format string
}

func (e *UnknownImageFormatError) Error() string {
	return fmt.Sprintf("unrecognized image format %s", e.Format)
}

// DiagnosticCode returns the error's stable identifier.
func (e *UnknownImageFormatError) DiagnosticCode() string {
	return "espflash.unknown_format"
}

// Hint lists the formats this build does know.
func (e *UnknownImageFormatError) Hint() string {
	formats := image.AllFormats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return "The following image formats are supported: " + strings.Join(names, ", ")
}

// InvalidDirectBootError reports a direct-boot image missing the
// required magic prefix.
type InvalidDirectBootError struct{}

func (e *InvalidDirectBootError) Error() string {
	return "binary is not set up correctly to support direct boot"
}

// DiagnosticCode returns the error's stable identifier.
func (e *InvalidDirectBootError) DiagnosticCode() string {
	return "espflash.invalid_direct_boot"
}

// Hint points at the direct-boot layout documentation.
func (e *InvalidDirectBootError) Hint() string {
	return "See the following page for documentation on how to set up your binary for direct boot:\nhttps://github.com/espressif/esp32c3-direct-boot-example"
}

// FlashVerifyError reports a written flash region whose digest read back
// wrong.
type FlashVerifyError struct {
	// Addr is the start of the verified region.
	Addr uint32

	// Expected and Actual are lowercase hex MD5 digests.
	Expected string
	Actual   string
}

func (e *FlashVerifyError) Error() string {
	return fmt.Sprintf("flash verification failed at %#x: expected md5 %s, got %s",
		e.Addr, e.Expected, e.Actual)
}

// DiagnosticCode returns the error's stable identifier.
func (e *FlashVerifyError) DiagnosticCode() string {
	return "espflash.verify_failed"
}

// FromIO classifies a raw I/O failure and tags it with the connecting
// stage. Pipeline phases that run after the handshake promote the result
// with Flashing.
func FromIO(err error) Error {
	return &StageError{Stage: StageConnecting, Err: connection.FromIO(err)}
}

// FromSerial classifies a serial transport failure and tags it with the
// connecting stage.
func FromSerial(err error) Error {
	return &StageError{Stage: StageConnecting, Err: connection.FromSerial(err)}
}

// FromSLIP classifies a framing layer failure and tags it with the
// connecting stage.
func FromSLIP(err error) Error {
	return &StageError{Stage: StageConnecting, Err: connection.FromSLIP(err)}
}

// FromBinary classifies a response decoding failure and tags it with the
// connecting stage. Like connection.FromBinary it panics when the cause
// is not an I/O failure.
func FromBinary(err error) Error {
	return &StageError{Stage: StageConnecting, Err: connection.FromBinary(err)}
}
