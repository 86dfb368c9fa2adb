package image

import "fmt"

// Chip identifies a supported Espressif device family.
type Chip int

const (
	// ChipESP8266 is the original ESP8266.
	ChipESP8266 Chip = iota

	// ChipESP32 is the ESP32.
	ChipESP32

	// ChipESP32C3 is the RISC-V based ESP32-C3.
	ChipESP32C3
)

// ChipDetectRegister is the address of the register whose value identifies
// the chip family. It is readable by the ROM loader on every supported
// device.
const ChipDetectRegister = 0x40001000

// Chip detection magic values read from ChipDetectRegister.
const (
	magicESP8266   = 0xFFF0C101
	magicESP32     = 0x00F01D83
	magicESP32C3   = 0x6921506F // ECO 1 and 2
	magicESP32C3v3 = 0x1B31506F // ECO 3
)

// ChipFromMagic maps a magic register value to the chip it identifies.
// The boolean reports whether the value is known.
func ChipFromMagic(magic uint32) (Chip, bool) {
	switch magic {
	case magicESP8266:
		return ChipESP8266, true
	case magicESP32:
		return ChipESP32, true
	case magicESP32C3, magicESP32C3v3:
		return ChipESP32C3, true
	default:
		return 0, false
	}
}

// String returns the lowercase conventional name of the chip.
func (c Chip) String() string {
	switch c {
	case ChipESP8266:
		return "esp8266"
	case ChipESP32:
		return "esp32"
	case ChipESP32C3:
		return "esp32-c3"
	default:
		return fmt.Sprintf("chip(%d)", int(c))
	}
}

// ParseChip resolves a chip from its conventional name.
func ParseChip(name string) (Chip, error) {
	switch name {
	case "esp8266":
		return ChipESP8266, nil
	case "esp32":
		return ChipESP32, nil
	case "esp32-c3", "esp32c3":
		return ChipESP32C3, nil
	default:
		return 0, fmt.Errorf("unknown chip %q", name)
	}
}

// AppOffset is the flash offset applications are written to by default.
func (c Chip) AppOffset() uint32 {
	if c == ChipESP8266 {
		return 0x0
	}
	return 0x10000
}

// addrRange is a half-open address range [start, end).
type addrRange struct {
	start uint32
	end   uint32
}

func (r addrRange) contains(addr uint32) bool {
	return addr >= r.start && addr < r.end
}

// flashRanges lists the address windows through which each chip maps its
// SPI flash. Anything loadable outside these windows must live in RAM.
var flashRanges = map[Chip][]addrRange{
	ChipESP8266: {
		{0x40200000, 0x40300000}, // IROM
	},
	ChipESP32: {
		{0x3F400000, 0x3F800000}, // DROM
		{0x400D0000, 0x40400000}, // IROM
	},
	ChipESP32C3: {
		{0x3C000000, 0x3C800000}, // DROM
		{0x42000000, 0x42800000}, // IROM
	},
}

// IsFlashAddress reports whether addr falls inside one of the chip's
// flash-mapped windows.
func (c Chip) IsFlashAddress(addr uint32) bool {
	for _, r := range flashRanges[c] {
		if r.contains(addr) {
			return true
		}
	}
	return false
}

// SupportedImageFormats lists the image formats the chip can boot, the
// default first.
func (c Chip) SupportedImageFormats() []FormatID {
	if c == ChipESP32C3 {
		return []FormatID{FormatBootloader, FormatDirectBoot}
	}
	return []FormatID{FormatBootloader}
}

// SupportsFormat reports whether the chip can boot the given format.
func (c Chip) SupportsFormat(format FormatID) bool {
	for _, f := range c.SupportedImageFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// chipID is the identifier written into the extended image header. The
// ESP8266 image format predates the extended header and has no id.
func (c Chip) chipID() uint16 {
	switch c {
	case ChipESP32:
		return 0
	case ChipESP32C3:
		return 5
	default:
		return 0xFFFF
	}
}

// SPIRegisters locates the SPI controller registers used to issue raw
// flash commands through the ROM loader.
type SPIRegisters struct {
	// Cmd triggers a user-defined SPI transaction.
	Cmd uint32

	// Usr, Usr1 and Usr2 configure the transaction phases.
	Usr  uint32
	Usr1 uint32
	Usr2 uint32

	// MosiDlen and MisoDlen hold the transfer bit lengths. Zero means
	// the chip encodes lengths in Usr1 instead.
	MosiDlen uint32
	MisoDlen uint32

	// W0 is the first data word of the transaction buffer.
	W0 uint32
}

// SPIRegisters returns the chip's SPI controller register map.
func (c Chip) SPIRegisters() SPIRegisters {
	switch c {
	case ChipESP8266:
		return SPIRegisters{
			Cmd:  0x60000200,
			Usr:  0x60000200 + 0x1C,
			Usr1: 0x60000200 + 0x20,
			Usr2: 0x60000200 + 0x24,
			W0:   0x60000200 + 0x40,
		}
	case ChipESP32:
		return SPIRegisters{
			Cmd:      0x3FF42000,
			Usr:      0x3FF42000 + 0x1C,
			Usr1:     0x3FF42000 + 0x20,
			Usr2:     0x3FF42000 + 0x24,
			MosiDlen: 0x3FF42000 + 0x28,
			MisoDlen: 0x3FF42000 + 0x2C,
			W0:       0x3FF42000 + 0x80,
		}
	default:
		return SPIRegisters{
			Cmd:      0x60002000,
			Usr:      0x60002000 + 0x18,
			Usr1:     0x60002000 + 0x1C,
			Usr2:     0x60002000 + 0x20,
			MosiDlen: 0x60002000 + 0x24,
			MisoDlen: 0x60002000 + 0x28,
			W0:       0x60002000 + 0x58,
		}
	}
}

// UnsupportedImageFormatError reports a format/chip combination that
// cannot boot.
type UnsupportedImageFormatError struct {
	// Format is the requested image format.
	Format FormatID

	// Chip is the target that rejected it.
	Chip Chip
}

func (e *UnsupportedImageFormatError) Error() string {
	return fmt.Sprintf("image format %s is not supported by the %s", e.Format, e.Chip)
}

// DiagnosticCode returns the error's stable identifier.
func (e *UnsupportedImageFormatError) DiagnosticCode() string {
	return "espflash.unsupported_image_format"
}

// Hint lists the formats the chip does support.
func (e *UnsupportedImageFormatError) Hint() string {
	return fmt.Sprintf("The following image formats are supported by the %s: %s",
		e.Chip, formatList(e.Chip.SupportedImageFormats()))
}
