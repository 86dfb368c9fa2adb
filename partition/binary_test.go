package partition

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"strings"
	"testing"
)

func TestToBinary(t *testing.T) {
	table, err := ParseCSV(basicCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bin, err := table.ToBinary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Three entries plus the MD5 row.
	if len(bin) != 4*binaryEntrySize {
		t.Fatalf("binary length = %d, want %d", len(bin), 4*binaryEntrySize)
	}

	entry := bin[:binaryEntrySize]
	if !bytes.Equal(entry[0:2], entryMagic[:]) {
		t.Errorf("entry magic = % X", entry[0:2])
	}
	if entry[2] != byte(TypeData) {
		t.Errorf("entry type = 0x%02X, want data", entry[2])
	}
	if entry[3] != SubTypeNVS.Value() {
		t.Errorf("entry subtype = 0x%02X, want 0x%02X", entry[3], SubTypeNVS.Value())
	}
	if got := binary.LittleEndian.Uint32(entry[4:8]); got != 0x9000 {
		t.Errorf("entry offset = %#x, want 0x9000", got)
	}
	if got := binary.LittleEndian.Uint32(entry[8:12]); got != 0x6000 {
		t.Errorf("entry size = %#x, want 0x6000", got)
	}

	var name [16]byte
	copy(name[:], "nvs")
	if !bytes.Equal(entry[12:28], name[:]) {
		t.Errorf("entry name = % X", entry[12:28])
	}
	if got := binary.LittleEndian.Uint32(entry[28:32]); got != 0 {
		t.Errorf("entry flags = %d, want 0", got)
	}

	// The trailing row carries its own magic and the digest of all
	// preceding entries.
	row := bin[3*binaryEntrySize:]
	if !bytes.Equal(row[0:2], md5Magic[:]) {
		t.Errorf("md5 row magic = % X", row[0:2])
	}
	for i := 2; i < 16; i++ {
		if row[i] != 0xFF {
			t.Fatalf("md5 row padding byte %d = 0x%02X, want 0xFF", i, row[i])
		}
	}
	digest := md5.Sum(bin[:3*binaryEntrySize])
	if !bytes.Equal(row[16:32], digest[:]) {
		t.Errorf("md5 row digest = % X, want % X", row[16:32], digest)
	}
}

func TestToBinaryEncryptedFlag(t *testing.T) {
	const csv = "nvs, data, nvs, 0x9000, 0x6000, encrypted\n"

	table, err := ParseCSV(csv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, err := table.ToBinary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := binary.LittleEndian.Uint32(bin[28:32]); got != 1 {
		t.Errorf("flags = %d, want 1", got)
	}
}

func TestToBinaryTooLarge(t *testing.T) {
	// 96 entries plus the MD5 row is one row past the reserved space.
	table := &Table{partitions: make([]Partition, 96)}

	_, err := table.ToBinary()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "maximum") {
		t.Errorf("error = %v, want a mention of the maximum size", err)
	}
}

func BenchmarkToBinary(b *testing.B) {
	table, err := ParseCSV(basicCSV)
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = table.ToBinary()
	}
}
