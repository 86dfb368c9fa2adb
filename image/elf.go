package image

import (
	"bytes"
	"debug/elf"
	"io"
	"sort"
)

// ElfError reports an ELF file this package cannot load. The message is
// fixed at the point of failure.
type ElfError string

func (e ElfError) Error() string {
	return string(e)
}

const (
	errNotELF     ElfError = "file is not a valid elf image"
	errNot32Bit   ElfError = "elf image is not 32-bit"
	errTruncated  ElfError = "elf image is truncated"
	errNoSegments ElfError = "elf image has no loadable segments"
)

// Segment is a loadable chunk of firmware bound to a target address.
type Segment struct {
	// Addr is the address the chip expects the data at.
	Addr uint32

	// Data is the segment's content.
	Data []byte
}

// End returns the address one past the segment's last byte.
func (s Segment) End() uint32 {
	return s.Addr + uint32(len(s.Data))
}

// FirmwareImage is the chip-independent content of a firmware ELF.
type FirmwareImage struct {
	// Entry is the program entry point.
	Entry uint32

	// Segments holds every loadable segment, sorted by address.
	Segments []Segment
}

// LoadELF parses a 32-bit ELF image into a FirmwareImage. Failures are
// ElfError values.
func LoadELF(data []byte) (*FirmwareImage, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errNotELF
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, errNot32Bit
	}

	img := &FirmwareImage{Entry: uint32(f.Entry)}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		content, err := io.ReadAll(prog.Open())
		if err != nil {
			return nil, errTruncated
		}
		// The load address is the physical one; the virtual address
		// may point at a cache window.
		addr := uint32(prog.Paddr)
		img.Segments = append(img.Segments, Segment{Addr: addr, Data: content})
	}
	if len(img.Segments) == 0 {
		return nil, errNoSegments
	}

	sort.Slice(img.Segments, func(i, j int) bool {
		return img.Segments[i].Addr < img.Segments[j].Addr
	})
	return img, nil
}

// RAMSegments returns the segments that load into the chip's RAM.
func (img *FirmwareImage) RAMSegments(c Chip) []Segment {
	var segs []Segment
	for _, s := range img.Segments {
		if !c.IsFlashAddress(s.Addr) {
			segs = append(segs, s)
		}
	}
	return segs
}

// ROMSegments returns the segments that map into the chip's flash.
func (img *FirmwareImage) ROMSegments(c Chip) []Segment {
	var segs []Segment
	for _, s := range img.Segments {
		if c.IsFlashAddress(s.Addr) {
			segs = append(segs, s)
		}
	}
	return segs
}
