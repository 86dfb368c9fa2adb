package protocol

import "fmt"

// RomErrorKind classifies the status codes the ROM bootloader reports when
// a command fails.
type RomErrorKind byte

// ROM status codes. Codes not listed here classify as RomOther.
const (
	// RomInvalidMessage means the ROM could not parse the request.
	RomInvalidMessage RomErrorKind = 0x05

	// RomFailedToAct means the ROM parsed the request but could not
	// execute it.
	RomFailedToAct RomErrorKind = 0x06

	// RomInvalidCRC means the request checksum did not match the data.
	RomInvalidCRC RomErrorKind = 0x07

	// RomFlashWriteError means a flash write failed verification.
	RomFlashWriteError RomErrorKind = 0x08

	// RomFlashReadError means a flash read failed.
	RomFlashReadError RomErrorKind = 0x09

	// RomFlashReadLengthError means a flash read length was rejected.
	RomFlashReadLengthError RomErrorKind = 0x0A

	// RomDeflateError means compressed data could not be inflated.
	RomDeflateError RomErrorKind = 0x0B

	// RomOther covers every status code without a dedicated kind.
	RomOther RomErrorKind = 0xFF
)

// RomErrorKindFromCode classifies a raw ROM status code. It is total:
// every possible byte maps to a kind, codes without a dedicated kind map
// to RomOther.
func RomErrorKindFromCode(code byte) RomErrorKind {
	switch RomErrorKind(code) {
	case RomInvalidMessage,
		RomFailedToAct,
		RomInvalidCRC,
		RomFlashWriteError,
		RomFlashReadError,
		RomFlashReadLengthError,
		RomDeflateError:
		return RomErrorKind(code)
	default:
		return RomOther
	}
}

// Error returns the human-readable description of the kind.
func (k RomErrorKind) Error() string {
	switch k {
	case RomInvalidMessage:
		return "invalid message received"
	case RomFailedToAct:
		return "bootloader failed to execute command"
	case RomInvalidCRC:
		return "received message has invalid crc"
	case RomFlashWriteError:
		return "bootloader failed to write to flash"
	case RomFlashReadError:
		return "bootloader failed to read from flash"
	case RomFlashReadLengthError:
		return "invalid length for flash read"
	case RomDeflateError:
		return "malformed compressed data received"
	default:
		return "other error"
	}
}

// DiagnosticCode returns the kind's stable identifier.
func (k RomErrorKind) DiagnosticCode() string {
	switch k {
	case RomInvalidMessage:
		return "espflash.rom.invalid_message"
	case RomFailedToAct:
		return "espflash.rom.failed"
	case RomInvalidCRC:
		return "espflash.rom.crc"
	case RomFlashWriteError:
		return "espflash.rom.flash_write"
	case RomFlashReadError:
		return "espflash.rom.flash_read"
	case RomFlashReadLengthError:
		return "espflash.rom.flash_read_length"
	case RomDeflateError:
		return "espflash.rom.deflate"
	default:
		return "espflash.rom.other"
	}
}

// RomError is a failure the ROM bootloader reported in response to a
// command. It pairs the command that was running with the classified
// status code.
type RomError struct {
	// Command is the command the ROM rejected.
	Command Command

	// Kind classifies the ROM's status code.
	Kind RomErrorKind
}

// NewRomError returns a RomError for cmd classified as kind.
func NewRomError(cmd Command, kind RomErrorKind) *RomError {
	return &RomError{Command: cmd, Kind: kind}
}

func (e *RomError) Error() string {
	return fmt.Sprintf("error while running %s command: %s", e.Command, e.Kind)
}

// Unwrap exposes the kind so errors.Is can match against it.
func (e *RomError) Unwrap() error {
	return e.Kind
}

// DiagnosticCode returns the identifier of the underlying kind.
func (e *RomError) DiagnosticCode() string {
	return e.Kind.DiagnosticCode()
}
