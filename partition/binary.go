package partition

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

const (
	// TableOffset is where the bootloader expects the partition table
	// in flash.
	TableOffset = 0x8000

	// MaxBinarySize is the flash space reserved for the table. The
	// serialized table, MD5 row included, must fit in it.
	MaxBinarySize = 0xC00

	// binaryEntrySize is the size of one serialized table row.
	binaryEntrySize = 32
)

var (
	// entryMagic starts every partition entry.
	entryMagic = [2]byte{0xAA, 0x50}

	// md5Magic starts the trailing MD5 row.
	md5Magic = [2]byte{0xEB, 0xEB}
)

// ToBinary serializes the table into the layout the bootloader reads.
//
// Entry structure, little endian:
//
//	[0xAA 0x50][TYPE][SUBTYPE][OFFSET(4)][SIZE(4)][NAME(16)][FLAGS(4)]
//
// A final row [0xEB 0xEB][0xFF x 14][MD5(16)] holds the digest of all
// preceding entries.
func (t *Table) ToBinary() ([]byte, error) {
	out := make([]byte, 0, (len(t.partitions)+1)*binaryEntrySize)
	for i := range t.partitions {
		p := &t.partitions[i]

		out = append(out, entryMagic[:]...)
		out = append(out, byte(p.Type), p.SubType.Value())
		out = binary.LittleEndian.AppendUint32(out, p.Offset)
		out = binary.LittleEndian.AppendUint32(out, p.Size)

		var name [16]byte
		copy(name[:], p.Name)
		out = append(out, name[:]...)

		var flags uint32
		if p.Encrypted {
			flags = 1
		}
		out = binary.LittleEndian.AppendUint32(out, flags)
	}

	digest := md5.Sum(out)
	out = append(out, md5Magic[:]...)
	for i := 0; i < 14; i++ {
		out = append(out, 0xFF)
	}
	out = append(out, digest[:]...)

	if len(out) > MaxBinarySize {
		return nil, fmt.Errorf("partition table occupies %d bytes, the maximum is %d", len(out), MaxBinarySize)
	}
	return out, nil
}
