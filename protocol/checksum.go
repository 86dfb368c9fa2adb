package protocol

// Checksum computes the checksum the ROM verifies for block transfer
// commands: every payload byte XORed into the seed 0xEF, widened to 32
// bits for the request header.
//
// Only the block payload is covered, never the 16-byte data header the
// Build*DataRequest functions prepend.
func Checksum(data []byte) uint32 {
	sum := byte(ChecksumSeed)
	for _, b := range data {
		sum ^= b
	}
	return uint32(sum)
}
