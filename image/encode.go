package image

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidDirectBoot reports firmware that asks for the direct-boot
// format without being laid out for it.
var ErrInvalidDirectBoot = errors.New("image: binary is not set up for direct boot")

const (
	// imageMagic starts every bootloader-format image.
	imageMagic = 0xE9

	// flashModeDIO is the flash mode byte written into the header.
	flashModeDIO = 0x02

	// flashSizeFreq encodes a 4 MB part clocked at 40 MHz.
	flashSizeFreq = 0x20

	// wpPinDisabled marks the write-protect pin as unused in the
	// extended header.
	wpPinDisabled = 0xEE

	// checksumSeed is the initial value of the image data checksum.
	checksumSeed = 0xEF
)

// BuildFlashImage lays img out as the flash segments to write for the
// given chip and format. It returns an *UnsupportedImageFormatError when
// the chip cannot boot the format, and ErrInvalidDirectBoot when a
// direct-boot image lacks the required magic.
func BuildFlashImage(c Chip, format FormatID, img *FirmwareImage) ([]Segment, error) {
	if !c.SupportsFormat(format) {
		return nil, &UnsupportedImageFormatError{Format: format, Chip: c}
	}
	if format == FormatDirectBoot {
		return buildDirectBootImage(c, img)
	}
	return buildBootloaderImage(c, img)
}

// buildBootloaderImage serializes img into the 0xE9-header format and
// places it at the chip's application offset.
//
// Image structure:
//
//	[0xE9][SEG_COUNT][FLASH_MODE][SIZE_FREQ][ENTRY(4)]
//	[EXTENDED_HEADER(16), ESP32 family only]
//	per segment: [ADDR(4)][SIZE(4)][DATA, padded to 4]
//	[ZERO PADDING][CHECKSUM(1)], sized so the image ends on a 16-byte boundary
func buildBootloaderImage(c Chip, img *FirmwareImage) ([]Segment, error) {
	out := make([]byte, 0, imageSizeEstimate(img))
	out = append(out, imageMagic, byte(len(img.Segments)), flashModeDIO, flashSizeFreq)
	out = binary.LittleEndian.AppendUint32(out, img.Entry)

	if c != ChipESP8266 {
		ext := make([]byte, 16)
		ext[0] = wpPinDisabled
		binary.LittleEndian.PutUint16(ext[4:6], c.chipID())
		out = append(out, ext...)
	}

	checksum := byte(checksumSeed)
	for _, seg := range img.Segments {
		padded := (len(seg.Data) + 3) &^ 3
		out = binary.LittleEndian.AppendUint32(out, seg.Addr)
		out = binary.LittleEndian.AppendUint32(out, uint32(padded))
		out = append(out, seg.Data...)
		for i := len(seg.Data); i < padded; i++ {
			out = append(out, 0)
		}
		for _, b := range seg.Data {
			checksum ^= b
		}
	}

	// The checksum byte lands on the last byte of a 16-byte boundary.
	for len(out)%16 != 15 {
		out = append(out, 0)
	}
	out = append(out, checksum)

	return []Segment{{Addr: c.AppOffset(), Data: out}}, nil
}

// buildDirectBootImage flattens the flash-mapped segments into a single
// blob written at offset zero.
func buildDirectBootImage(c Chip, img *FirmwareImage) ([]Segment, error) {
	segs := img.ROMSegments(c)
	if len(segs) == 0 || !IsDirectBootBinary(segs[0].Data) {
		return nil, ErrInvalidDirectBoot
	}

	base := segs[0].Addr
	var out []byte
	for _, seg := range segs {
		// Gaps between segments read back as erased flash.
		for len(out) < int(seg.Addr-base) {
			out = append(out, 0xFF)
		}
		out = append(out, seg.Data...)
	}

	return []Segment{{Addr: 0x0, Data: out}}, nil
}

func imageSizeEstimate(img *FirmwareImage) int {
	n := 64
	for _, seg := range img.Segments {
		n += len(seg.Data) + 16
	}
	return n
}
