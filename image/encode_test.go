package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestBuildBootloaderImage(t *testing.T) {
	img := &FirmwareImage{
		Entry: 0x400D1000,
		Segments: []Segment{
			{Addr: 0x3F400000, Data: []byte{0xAA, 0xBB, 0xCC}},
			{Addr: 0x400D0000, Data: []byte{0x11, 0x22, 0x33, 0x44}},
		},
	}

	segs, err := BuildFlashImage(ChipESP32, FormatBootloader, img)
	if err != nil {
		t.Fatalf("BuildFlashImage() error = %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d flash segments, want 1", len(segs))
	}
	if segs[0].Addr != 0x10000 {
		t.Errorf("image offset = 0x%X, want the esp32 app offset 0x10000", segs[0].Addr)
	}

	out := segs[0].Data
	if out[0] != imageMagic {
		t.Errorf("magic = 0x%02X, want 0x%02X", out[0], imageMagic)
	}
	if out[1] != 2 {
		t.Errorf("segment count = %d, want 2", out[1])
	}
	if entry := binary.LittleEndian.Uint32(out[4:8]); entry != 0x400D1000 {
		t.Errorf("entry = 0x%08X, want 0x400D1000", entry)
	}

	// Extended header: write-protect disabled, esp32 chip id.
	if out[8] != wpPinDisabled {
		t.Errorf("wp pin = 0x%02X, want 0x%02X", out[8], wpPinDisabled)
	}
	if id := binary.LittleEndian.Uint16(out[12:14]); id != 0 {
		t.Errorf("chip id = %d, want 0", id)
	}

	// First segment record follows the headers, data padded to 4 bytes.
	segStart := 8 + 16
	if addr := binary.LittleEndian.Uint32(out[segStart : segStart+4]); addr != 0x3F400000 {
		t.Errorf("segment addr = 0x%08X, want 0x3F400000", addr)
	}
	if size := binary.LittleEndian.Uint32(out[segStart+4 : segStart+8]); size != 4 {
		t.Errorf("segment size = %d, want 4 after padding", size)
	}

	if len(out)%16 != 0 {
		t.Errorf("image length %d is not 16-byte aligned", len(out))
	}

	wantSum := byte(checksumSeed) ^ 0xAA ^ 0xBB ^ 0xCC ^ 0x11 ^ 0x22 ^ 0x33 ^ 0x44
	if got := out[len(out)-1]; got != wantSum {
		t.Errorf("checksum = 0x%02X, want 0x%02X", got, wantSum)
	}
}

func TestBuildBootloaderImageESP8266HasNoExtendedHeader(t *testing.T) {
	img := &FirmwareImage{
		Entry:    0x40100000,
		Segments: []Segment{{Addr: 0x40100000, Data: []byte{1, 2, 3, 4}}},
	}

	segs, err := BuildFlashImage(ChipESP8266, FormatBootloader, img)
	if err != nil {
		t.Fatalf("BuildFlashImage() error = %v", err)
	}
	out := segs[0].Data

	if segs[0].Addr != 0 {
		t.Errorf("image offset = 0x%X, want 0", segs[0].Addr)
	}
	// Segment records start right after the 8-byte base header.
	if addr := binary.LittleEndian.Uint32(out[8:12]); addr != 0x40100000 {
		t.Errorf("segment addr = 0x%08X, want 0x40100000", addr)
	}
}

func TestBuildDirectBootImage(t *testing.T) {
	payload := append(append([]byte{}, directBootMagic...), 0x01, 0x02)
	img := &FirmwareImage{
		Segments: []Segment{
			{Addr: 0x42000000, Data: payload},
			{Addr: 0x42000010, Data: []byte{0x03}},
		},
	}

	segs, err := BuildFlashImage(ChipESP32C3, FormatDirectBoot, img)
	if err != nil {
		t.Fatalf("BuildFlashImage() error = %v", err)
	}
	if segs[0].Addr != 0 {
		t.Errorf("direct-boot image offset = 0x%X, want 0", segs[0].Addr)
	}

	out := segs[0].Data
	if !bytes.HasPrefix(out, directBootMagic) {
		t.Errorf("image does not start with the direct-boot magic: % X", out[:8])
	}
	// The gap between the segments reads as erased flash.
	if out[12] != 0xFF {
		t.Errorf("gap byte = 0x%02X, want 0xFF", out[12])
	}
	if out[16] != 0x03 {
		t.Errorf("second segment byte = 0x%02X, want 0x03", out[16])
	}
}

func TestBuildDirectBootImageRejectsMissingMagic(t *testing.T) {
	img := &FirmwareImage{
		Segments: []Segment{{Addr: 0x42000000, Data: []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}}},
	}

	_, err := BuildFlashImage(ChipESP32C3, FormatDirectBoot, img)
	if !errors.Is(err, ErrInvalidDirectBoot) {
		t.Errorf("BuildFlashImage() error = %v, want ErrInvalidDirectBoot", err)
	}
}

func TestBuildFlashImageUnsupportedFormat(t *testing.T) {
	img := &FirmwareImage{Segments: []Segment{{Addr: 0x400D0000, Data: []byte{1}}}}

	_, err := BuildFlashImage(ChipESP32, FormatDirectBoot, img)
	var unsupported *UnsupportedImageFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("BuildFlashImage() error = %T, want UnsupportedImageFormatError", err)
	}
	if unsupported.Chip != ChipESP32 || unsupported.Format != FormatDirectBoot {
		t.Errorf("error fields = %+v", unsupported)
	}
}

func TestIsDirectBootBinary(t *testing.T) {
	if IsDirectBootBinary([]byte{0x1D, 0x04}) {
		t.Error("short data must not pass the magic check")
	}
	if !IsDirectBootBinary(append(append([]byte{}, directBootMagic...), 0x99)) {
		t.Error("data with the doubled magic must pass")
	}
}
