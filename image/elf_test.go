package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// elfSegment describes one PT_LOAD entry for the fixture builder.
type elfSegment struct {
	addr uint32
	data []byte
}

// elfHeader32 mirrors the ELF32 header fields after e_ident.
type elfHeader32 struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// elfProg32 mirrors an ELF32 program header.
type elfProg32 struct {
	Type   uint32
	Off    uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

// makeELF assembles a minimal 32-bit little-endian ELF with the given
// entry point and loadable segments.
func makeELF(entry uint32, segs []elfSegment) []byte {
	const (
		headerSize = 52
		phdrSize   = 32
		ptLoad     = 1
		emXtensa   = 94
	)

	var buf bytes.Buffer
	buf.Write([]byte{0x7F, 'E', 'L', 'F', 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	binary.Write(&buf, binary.LittleEndian, elfHeader32{
		Type:      2, // EXEC
		Machine:   emXtensa,
		Version:   1,
		Entry:     entry,
		Phoff:     headerSize,
		Ehsize:    headerSize,
		Phentsize: phdrSize,
		Phnum:     uint16(len(segs)),
	})

	offset := uint32(headerSize + phdrSize*len(segs))
	for _, seg := range segs {
		binary.Write(&buf, binary.LittleEndian, elfProg32{
			Type:   ptLoad,
			Off:    offset,
			Vaddr:  seg.addr,
			Paddr:  seg.addr,
			Filesz: uint32(len(seg.data)),
			Memsz:  uint32(len(seg.data)),
			Flags:  7,
			Align:  4,
		})
		offset += uint32(len(seg.data))
	}
	for _, seg := range segs {
		buf.Write(seg.data)
	}
	return buf.Bytes()
}

func TestLoadELF(t *testing.T) {
	raw := makeELF(0x40100000, []elfSegment{
		{addr: 0x40100000, data: []byte{0x01, 0x02, 0x03, 0x04}},
		{addr: 0x3FFE8000, data: []byte{0xAA, 0xBB}},
	})

	img, err := LoadELF(raw)
	if err != nil {
		t.Fatalf("LoadELF() error = %v", err)
	}

	if img.Entry != 0x40100000 {
		t.Errorf("Entry = 0x%08X, want 0x40100000", img.Entry)
	}
	if len(img.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(img.Segments))
	}
	// Segments come back sorted by address.
	if img.Segments[0].Addr != 0x3FFE8000 {
		t.Errorf("first segment at 0x%08X, want 0x3FFE8000", img.Segments[0].Addr)
	}
	if !bytes.Equal(img.Segments[0].Data, []byte{0xAA, 0xBB}) {
		t.Errorf("first segment data = % X", img.Segments[0].Data)
	}
	if img.Segments[1].End() != 0x40100004 {
		t.Errorf("End() = 0x%08X, want 0x40100004", img.Segments[1].End())
	}
}

func TestLoadELFErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want ElfError
	}{
		{
			name: "not an elf",
			data: []byte("#!/bin/sh\necho hello\n"),
			want: errNotELF,
		},
		{
			name: "empty input",
			data: nil,
			want: errNotELF,
		},
		{
			name: "no loadable segments",
			data: makeELF(0x40100000, nil),
			want: errNoSegments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadELF(tt.data)
			if err == nil {
				t.Fatal("LoadELF() succeeded, want error")
			}
			var elfErr ElfError
			if !errors.As(err, &elfErr) {
				t.Fatalf("LoadELF() error = %T, want ElfError", err)
			}
			if elfErr != tt.want {
				t.Errorf("LoadELF() error = %q, want %q", elfErr, tt.want)
			}
		})
	}
}

func TestSegmentSplit(t *testing.T) {
	// One esp32 IRAM segment and two flash-mapped ones (IROM, DROM).
	raw := makeELF(0x40080000, []elfSegment{
		{addr: 0x40080000, data: []byte{1, 2, 3, 4}},
		{addr: 0x400D0000, data: []byte{5, 6, 7, 8}},
		{addr: 0x3F400000, data: []byte{9, 10}},
	})

	img, err := LoadELF(raw)
	if err != nil {
		t.Fatalf("LoadELF() error = %v", err)
	}

	ram := img.RAMSegments(ChipESP32)
	rom := img.ROMSegments(ChipESP32)
	if len(ram) != 1 || ram[0].Addr != 0x40080000 {
		t.Errorf("RAMSegments = %+v, want the iram segment only", ram)
	}
	if len(rom) != 2 {
		t.Errorf("got %d rom segments, want 2", len(rom))
	}
}
