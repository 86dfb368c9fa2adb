package image

import (
	"bytes"
	"fmt"
	"strings"
)

// FormatID identifies an on-flash image layout.
type FormatID int

const (
	// FormatBootloader is the standard second-stage-bootloader layout
	// with the 0xE9 image header.
	FormatBootloader FormatID = iota

	// FormatDirectBoot is the headerless layout the ESP32-C3 can run
	// straight from flash.
	FormatDirectBoot
)

// AllFormats lists every image format this package knows about.
func AllFormats() []FormatID {
	return []FormatID{FormatBootloader, FormatDirectBoot}
}

// String returns the format's conventional name.
func (f FormatID) String() string {
	switch f {
	case FormatBootloader:
		return "bootloader"
	case FormatDirectBoot:
		return "direct-boot"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat resolves a format from its conventional name. The boolean
// reports whether the name is known.
func ParseFormat(name string) (FormatID, bool) {
	switch name {
	case "bootloader":
		return FormatBootloader, true
	case "direct-boot":
		return FormatDirectBoot, true
	default:
		return 0, false
	}
}

// formatList joins format names for use in messages.
func formatList(formats []FormatID) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}

// directBootMagic is the marker a direct-boot image must start with: the
// 4-byte pattern repeated twice.
var directBootMagic = []byte{0x1D, 0x04, 0xDB, 0xAE, 0x1D, 0x04, 0xDB, 0xAE}

// IsDirectBootBinary reports whether data begins with the direct-boot
// magic.
func IsDirectBootBinary(data []byte) bool {
	return len(data) >= len(directBootMagic) && bytes.Equal(data[:len(directBootMagic)], directBootMagic)
}
