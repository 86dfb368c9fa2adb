package protocol

import "testing"

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint32
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0xEF, // seed unchanged
		},
		{
			name:     "single byte",
			data:     []byte{0x01},
			expected: 0xEE, // 0xEF ^ 0x01
		},
		{
			name:     "byte equal to seed",
			data:     []byte{0xEF},
			expected: 0x00,
		},
		{
			name:     "multiple bytes",
			data:     []byte{0x01, 0x02, 0x03, 0x04},
			expected: 0xEB, // 0xEF ^ 0x01 ^ 0x02 ^ 0x03 ^ 0x04
		},
		{
			name:     "pairs cancel out",
			data:     []byte{0xAA, 0xAA, 0x55, 0x55},
			expected: 0xEF,
		},
		{
			name:     "all ones",
			data:     []byte{0xFF, 0xFF, 0xFF},
			expected: 0x10, // 0xEF ^ 0xFF
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Checksum(tt.data)
			if result != tt.expected {
				t.Errorf("Checksum() = 0x%02X, want 0x%02X", result, tt.expected)
			}
		})
	}
}

// The checksum rides in a 32-bit header field but never exceeds one byte.
func TestChecksumFitsInByte(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i * 7)
	}
	if sum := Checksum(data); sum > 0xFF {
		t.Errorf("Checksum() = 0x%X, must fit in a single byte", sum)
	}
}

func BenchmarkChecksum(b *testing.B) {
	data := make([]byte, FlashBlockSize)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Checksum(data)
	}
}
