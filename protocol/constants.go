package protocol

// Frame direction bytes. Every frame starts with one.
const (
	// DirectionRequest marks a frame sent to the device.
	DirectionRequest = 0x00

	// DirectionResponse marks a frame sent by the device. Anything else
	// at the start of a frame is boot log noise and gets skipped by
	// readers.
	DirectionResponse = 0x01
)

// Status byte values carried in the response trailer.
const (
	// StatusSuccess indicates the command was executed.
	StatusSuccess = 0x00

	// StatusFailure indicates the command failed; the next trailer byte
	// holds the ROM status code.
	StatusFailure = 0x01
)

const (
	// requestHeaderSize is the fixed prefix of a request frame:
	// direction(1) + opcode(1) + size(2) + checksum(4).
	requestHeaderSize = 8

	// responseHeaderSize is the fixed prefix of a response frame:
	// direction(1) + opcode(1) + size(2) + value(4).
	responseHeaderSize = 8

	// statusTrailerSize is the number of status bytes at the end of the
	// response data.
	statusTrailerSize = 2
)

// ChecksumSeed is the initial value of the XOR checksum covering the data
// carried by block transfer commands.
const ChecksumSeed = 0xEF

// syncPattern is the SYNC payload: a 0x07 0x07 0x12 0x20 header followed by
// 32 repetitions of 0x55 so the ROM's baud rate detection can lock on.
var syncPattern = []byte{
	0x07, 0x07, 0x12, 0x20,
	0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
	0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
	0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
	0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
}

// Block geometry used by the data transfer commands.
const (
	// FlashBlockSize is the payload size of a single FLASH_DATA command.
	FlashBlockSize = 0x400

	// RAMBlockSize is the payload size of a single MEM_DATA command.
	RAMBlockSize = 0x1800
)

// SPI flash geometry reported to SPI_SET_PARAMS.
const (
	// FlashSectorSize is the size of an erasable flash sector.
	FlashSectorSize = 0x1000

	// FlashSector64K is the size of a 64 KiB erase block.
	FlashSector64K = 0x10000

	// FlashPageSize is the size of a programmable flash page.
	FlashPageSize = 0x100

	// FlashStatusMask is the status register mask passed to the ROM.
	FlashStatusMask = 0xFFFF
)
