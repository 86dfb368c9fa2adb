package protocol

import (
	"encoding/binary"
	"fmt"
)

// Command identifies a ROM bootloader operation. The value is the opcode
// byte sent on the wire.
type Command byte

// ROM bootloader opcodes.
const (
	// CommandFlashBegin starts a flash write session.
	CommandFlashBegin Command = 0x02

	// CommandFlashData sends one block of flash data.
	CommandFlashData Command = 0x03

	// CommandFlashEnd finishes a flash write session.
	CommandFlashEnd Command = 0x04

	// CommandMemBegin starts a RAM load session.
	CommandMemBegin Command = 0x05

	// CommandMemEnd finishes a RAM load session and jumps to the entry
	// point.
	CommandMemEnd Command = 0x06

	// CommandMemData sends one block of RAM data.
	CommandMemData Command = 0x07

	// CommandSync synchronizes the serial connection with the ROM.
	CommandSync Command = 0x08

	// CommandWriteReg writes a 32-bit device register.
	CommandWriteReg Command = 0x09

	// CommandReadReg reads a 32-bit device register.
	CommandReadReg Command = 0x0A

	// CommandSpiSetParams configures the attached SPI flash geometry.
	CommandSpiSetParams Command = 0x0B

	// CommandSpiAttach attaches the SPI flash to the SPI controller.
	CommandSpiAttach Command = 0x0D

	// CommandChangeBaudrate switches the ROM to a new baud rate.
	CommandChangeBaudrate Command = 0x0F

	// CommandFlashDeflBegin starts a compressed flash write session.
	CommandFlashDeflBegin Command = 0x10

	// CommandFlashDeflData sends one block of compressed flash data.
	CommandFlashDeflData Command = 0x11

	// CommandFlashDeflEnd finishes a compressed flash write session.
	CommandFlashDeflEnd Command = 0x12

	// CommandFlashMD5 asks the ROM for the MD5 digest of a flash region.
	CommandFlashMD5 Command = 0x13
)

// String returns the conventional name of the command, or UNKNOWN(0xNN)
// for opcodes this package does not know.
func (c Command) String() string {
	switch c {
	case CommandFlashBegin:
		return "FLASH_BEGIN"
	case CommandFlashData:
		return "FLASH_DATA"
	case CommandFlashEnd:
		return "FLASH_END"
	case CommandMemBegin:
		return "MEM_BEGIN"
	case CommandMemEnd:
		return "MEM_END"
	case CommandMemData:
		return "MEM_DATA"
	case CommandSync:
		return "SYNC"
	case CommandWriteReg:
		return "WRITE_REG"
	case CommandReadReg:
		return "READ_REG"
	case CommandSpiSetParams:
		return "SPI_SET_PARAMS"
	case CommandSpiAttach:
		return "SPI_ATTACH"
	case CommandChangeBaudrate:
		return "CHANGE_BAUDRATE"
	case CommandFlashDeflBegin:
		return "FLASH_DEFL_BEGIN"
	case CommandFlashDeflData:
		return "FLASH_DEFL_DATA"
	case CommandFlashDeflEnd:
		return "FLASH_DEFL_END"
	case CommandFlashMD5:
		return "FLASH_MD5"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(c))
	}
}

// BuildRequest assembles a raw request frame for cmd.
//
// Frame structure:
//
//	[0x00][OPCODE][SIZE_L][SIZE_H][CHECKSUM(4)][DATA...]
//
// The checksum is only meaningful for block transfer commands; every other
// command passes zero.
func BuildRequest(cmd Command, data []byte, checksum uint32) []byte {
	frame := make([]byte, requestHeaderSize+len(data))
	frame[0] = DirectionRequest
	frame[1] = byte(cmd)
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(data)))
	binary.LittleEndian.PutUint32(frame[4:8], checksum)
	copy(frame[requestHeaderSize:], data)
	return frame
}

// BuildSyncRequest builds the SYNC request used to establish communication
// after entering the bootloader.
func BuildSyncRequest() []byte {
	return BuildRequest(CommandSync, syncPattern, 0)
}

// BuildReadRegRequest builds a READ_REG request. The register value comes
// back in the response's Value field.
//
// Data structure:
//
//	[ADDR(4)]
func BuildReadRegRequest(addr uint32) []byte {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, addr)
	return BuildRequest(CommandReadReg, data, 0)
}

// BuildWriteRegRequest builds a WRITE_REG request.
//
// Data structure:
//
//	[ADDR(4)][VALUE(4)][MASK(4)][DELAY_US(4)]
func BuildWriteRegRequest(addr, value, mask, delayUS uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], addr)
	binary.LittleEndian.PutUint32(data[4:8], value)
	binary.LittleEndian.PutUint32(data[8:12], mask)
	binary.LittleEndian.PutUint32(data[12:16], delayUS)
	return BuildRequest(CommandWriteReg, data, 0)
}

// BuildFlashBeginRequest builds a FLASH_BEGIN request announcing a write of
// size bytes in blocks blocks of blockSize bytes starting at offset.
//
// Data structure:
//
//	[SIZE(4)][BLOCKS(4)][BLOCK_SIZE(4)][OFFSET(4)]
func BuildFlashBeginRequest(size, blocks, blockSize, offset uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], size)
	binary.LittleEndian.PutUint32(data[4:8], blocks)
	binary.LittleEndian.PutUint32(data[8:12], blockSize)
	binary.LittleEndian.PutUint32(data[12:16], offset)
	return BuildRequest(CommandFlashBegin, data, 0)
}

// BuildFlashDataRequest builds a FLASH_DATA request carrying one block.
// The frame checksum covers the block payload, not the data header.
//
// Data structure:
//
//	[DATA_SIZE(4)][SEQUENCE(4)][0(4)][0(4)][PAYLOAD...]
func BuildFlashDataRequest(block []byte, seq uint32) []byte {
	data := make([]byte, 16+len(block))
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(block)))
	binary.LittleEndian.PutUint32(data[4:8], seq)
	copy(data[16:], block)
	return BuildRequest(CommandFlashData, data, Checksum(block))
}

// BuildFlashEndRequest builds a FLASH_END request. When reboot is true the
// device leaves the loader and runs the flashed image.
func BuildFlashEndRequest(reboot bool) []byte {
	data := make([]byte, 4)
	if !reboot {
		// Nonzero asks the ROM to stay in the loader.
		binary.LittleEndian.PutUint32(data, 1)
	}
	return BuildRequest(CommandFlashEnd, data, 0)
}

// BuildMemBeginRequest builds a MEM_BEGIN request announcing a RAM load of
// size bytes in blocks blocks of blockSize bytes at offset.
//
// Data structure:
//
//	[SIZE(4)][BLOCKS(4)][BLOCK_SIZE(4)][OFFSET(4)]
func BuildMemBeginRequest(size, blocks, blockSize, offset uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], size)
	binary.LittleEndian.PutUint32(data[4:8], blocks)
	binary.LittleEndian.PutUint32(data[8:12], blockSize)
	binary.LittleEndian.PutUint32(data[12:16], offset)
	return BuildRequest(CommandMemBegin, data, 0)
}

// BuildMemDataRequest builds a MEM_DATA request carrying one block.
func BuildMemDataRequest(block []byte, seq uint32) []byte {
	data := make([]byte, 16+len(block))
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(block)))
	binary.LittleEndian.PutUint32(data[4:8], seq)
	copy(data[16:], block)
	return BuildRequest(CommandMemData, data, Checksum(block))
}

// BuildMemEndRequest builds a MEM_END request. A nonzero entry makes the
// ROM jump there once the load completes.
//
// Data structure:
//
//	[STAY_FLAG(4)][ENTRY(4)]
func BuildMemEndRequest(entry uint32) []byte {
	data := make([]byte, 8)
	if entry == 0 {
		binary.LittleEndian.PutUint32(data[0:4], 1)
	}
	binary.LittleEndian.PutUint32(data[4:8], entry)
	return BuildRequest(CommandMemEnd, data, 0)
}

// BuildSpiAttachRequest builds a SPI_ATTACH request. A zero parameter
// selects the default SPI flash pins.
func BuildSpiAttachRequest(param uint32) []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], param)
	return BuildRequest(CommandSpiAttach, data, 0)
}

// BuildSpiSetParamsRequest builds a SPI_SET_PARAMS request describing a
// flash part of totalSize bytes with the standard sector geometry.
//
// Data structure:
//
//	[ID(4)][TOTAL_SIZE(4)][BLOCK_SIZE(4)][SECTOR_SIZE(4)][PAGE_SIZE(4)][STATUS_MASK(4)]
func BuildSpiSetParamsRequest(totalSize uint32) []byte {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint32(data[4:8], totalSize)
	binary.LittleEndian.PutUint32(data[8:12], FlashSector64K)
	binary.LittleEndian.PutUint32(data[12:16], FlashSectorSize)
	binary.LittleEndian.PutUint32(data[16:20], FlashPageSize)
	binary.LittleEndian.PutUint32(data[20:24], FlashStatusMask)
	return BuildRequest(CommandSpiSetParams, data, 0)
}

// BuildChangeBaudrateRequest builds a CHANGE_BAUDRATE request. The ROM
// needs the rate currently in use to time the switch-over.
func BuildChangeBaudrateRequest(newRate, oldRate uint32) []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], newRate)
	binary.LittleEndian.PutUint32(data[4:8], oldRate)
	return BuildRequest(CommandChangeBaudrate, data, 0)
}

// BuildFlashDeflBeginRequest builds a FLASH_DEFL_BEGIN request announcing a
// compressed write. size is the image size after inflation.
func BuildFlashDeflBeginRequest(size, blocks, blockSize, offset uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], size)
	binary.LittleEndian.PutUint32(data[4:8], blocks)
	binary.LittleEndian.PutUint32(data[8:12], blockSize)
	binary.LittleEndian.PutUint32(data[12:16], offset)
	return BuildRequest(CommandFlashDeflBegin, data, 0)
}

// BuildFlashDeflDataRequest builds a FLASH_DEFL_DATA request carrying one
// block of deflate-compressed data.
func BuildFlashDeflDataRequest(block []byte, seq uint32) []byte {
	data := make([]byte, 16+len(block))
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(block)))
	binary.LittleEndian.PutUint32(data[4:8], seq)
	copy(data[16:], block)
	return BuildRequest(CommandFlashDeflData, data, Checksum(block))
}

// BuildFlashDeflEndRequest builds a FLASH_DEFL_END request.
func BuildFlashDeflEndRequest(reboot bool) []byte {
	data := make([]byte, 4)
	if !reboot {
		binary.LittleEndian.PutUint32(data, 1)
	}
	return BuildRequest(CommandFlashDeflEnd, data, 0)
}

// BuildFlashMD5Request builds a FLASH_MD5 request for the given region.
// The digest comes back as 32 hex characters in the response data.
//
// Data structure:
//
//	[ADDR(4)][SIZE(4)][0(4)][0(4)]
func BuildFlashMD5Request(addr, size uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], addr)
	binary.LittleEndian.PutUint32(data[4:8], size)
	return BuildRequest(CommandFlashMD5, data, 0)
}
