package flasher

import (
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moffa90/go-espflash/image"
	"github.com/moffa90/go-espflash/partition"
	"github.com/moffa90/go-espflash/protocol"
)

// LoadToFlash builds a bootable image from the ELF and writes it to
// flash. Bootloader-format images land at the chip's application
// offset, direct-boot images at offset zero.
//
// Example:
//
//	elf, _ := os.ReadFile("firmware.elf")
//	if err := f.LoadToFlash(elf, image.FormatBootloader); err != nil {
//		return err
//	}
func (f *Flasher) LoadToFlash(elf []byte, format image.FormatID) error {
	img, err := loadImage(elf)
	if err != nil {
		return err
	}
	segs, err := image.BuildFlashImage(f.chip, format, img)
	if err != nil {
		return wrapImageError(err)
	}
	return f.writeSegments(segs)
}

// WritePartitionTable serializes the table and writes it to the fixed
// offset the bootloader reads it from.
func (f *Flasher) WritePartitionTable(table *partition.Table) error {
	data, err := table.ToBinary()
	if err != nil {
		return err
	}
	f.logInfo("writing partition table", "offset", fmt.Sprintf("%#x", partition.TableOffset))
	return f.writeSegments([]image.Segment{{Addr: partition.TableOffset, Data: data}})
}

// ParsePartitionTable parses partition table CSV for flashing.
func ParsePartitionTable(source string) (*partition.Table, error) {
	table, err := partition.ParseCSV(source)
	if err != nil {
		var te partition.TableError
		if errors.As(err, &te) {
			return nil, &MalformedPartitionTableError{Err: te}
		}
		return nil, err
	}
	return table, nil
}

// ParseImageFormat resolves an image format from its name.
func ParseImageFormat(name string) (image.FormatID, error) {
	format, ok := image.ParseFormat(name)
	if !ok {
		return 0, &UnknownImageFormatError{Format: name}
	}
	return format, nil
}

// loadImage parses an ELF, classifying parse failures.
func loadImage(elf []byte) (*image.FirmwareImage, error) {
	img, err := image.LoadELF(elf)
	if err != nil {
		return nil, &InvalidElfError{Err: err}
	}
	return img, nil
}

// wrapImageError classifies the failures BuildFlashImage can return.
func wrapImageError(err error) error {
	var unsupported *image.UnsupportedImageFormatError
	if errors.As(err, &unsupported) {
		return &UnsupportedImageFormatError{Err: unsupported}
	}
	if errors.Is(err, image.ErrInvalidDirectBoot) {
		return &InvalidDirectBootError{}
	}
	return err
}

// writeSegments erases and writes each segment, verifies the result
// when configured to, and leaves the loader running. Failures past the
// sync handshake count as flashing failures.
func (f *Flasher) writeSegments(segs []image.Segment) error {
	start := time.Now()
	blockSize := f.config.BlockSize

	totalBlocks := 0
	for _, seg := range segs {
		totalBlocks += blockCount(len(seg.Data), blockSize)
	}

	written := 0
	block := 0
	for _, seg := range segs {
		f.logInfo("writing segment",
			"addr", fmt.Sprintf("%#x", seg.Addr),
			"size", len(seg.Data),
		)

		blocks := blockCount(len(seg.Data), blockSize)
		eraseSize := uint32(len(seg.Data))
		if f.chip == image.ChipESP8266 {
			eraseSize = esp8266EraseSize(seg.Addr, uint32(len(seg.Data)))
		}

		_, err := f.command(protocol.CommandFlashBegin,
			protocol.BuildFlashBeginRequest(eraseSize, uint32(blocks), uint32(blockSize), seg.Addr))
		if err != nil {
			return Flashing(err)
		}

		for seq := 0; seq < blocks; seq++ {
			_, err := f.command(protocol.CommandFlashData,
				protocol.BuildFlashDataRequest(paddedBlock(seg.Data, seq, blockSize), uint32(seq)))
			if err != nil {
				return Flashing(err)
			}

			n := len(seg.Data) - seq*blockSize
			if n > blockSize {
				n = blockSize
			}
			written += n
			block++
			f.reportProgress(Progress{
				Phase:        PhaseWriting,
				CurrentBlock: block,
				TotalBlocks:  totalBlocks,
				Percentage:   float64(block) / float64(totalBlocks) * 100,
				BytesWritten: written,
				ElapsedTime:  time.Since(start),
			})
		}
	}

	if f.config.VerifyFlash {
		f.reportProgress(Progress{
			Phase:        PhaseVerifying,
			CurrentBlock: block,
			TotalBlocks:  totalBlocks,
			Percentage:   100,
			BytesWritten: written,
			ElapsedTime:  time.Since(start),
		})
		for _, seg := range segs {
			if err := f.verifySegment(seg); err != nil {
				return err
			}
		}
	}

	// Stay in the loader; HardReset decides when to boot.
	if _, err := f.command(protocol.CommandFlashEnd, protocol.BuildFlashEndRequest(false)); err != nil {
		return Flashing(err)
	}

	f.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentBlock: totalBlocks,
		TotalBlocks:  totalBlocks,
		Percentage:   100,
		BytesWritten: written,
		ElapsedTime:  time.Since(start),
	})
	f.logInfo("flash complete",
		"bytes", written,
		"duration", time.Since(start).String(),
	)
	return nil
}

// verifySegment has the loader hash the written range and compares the
// digest against the local one.
func (f *Flasher) verifySegment(seg image.Segment) error {
	resp, err := f.command(protocol.CommandFlashMD5,
		protocol.BuildFlashMD5Request(seg.Addr, uint32(len(seg.Data))))
	if err != nil {
		return Flashing(err)
	}

	expected := fmt.Sprintf("%x", md5.Sum(seg.Data))
	actual := digestString(resp.Data)
	if actual != expected {
		return &FlashVerifyError{Addr: seg.Addr, Expected: expected, Actual: actual}
	}
	f.logDebug("segment verified", "addr", fmt.Sprintf("%#x", seg.Addr))
	return nil
}

// digestString normalizes a FLASH_MD5 answer to lowercase hex. ROM
// loaders answer with 32 hex characters, stub loaders with the 16 raw
// digest bytes. Anything else is hex-dumped so the mismatch is visible
// in the verification error.
func digestString(data []byte) string {
	if len(data) == 32 {
		return strings.ToLower(string(data))
	}
	return fmt.Sprintf("%x", data)
}

// blockCount returns how many blockSize transfers size bytes need.
func blockCount(size, blockSize int) int {
	return (size + blockSize - 1) / blockSize
}

// paddedBlock cuts block seq out of data. The final block is padded
// with 0xFF, which matches erased flash.
func paddedBlock(data []byte, seq, blockSize int) []byte {
	start := seq * blockSize
	end := start + blockSize
	if end > len(data) {
		end = len(data)
	}
	block := data[start:end]
	if len(block) == blockSize {
		return block
	}

	padded := make([]byte, blockSize)
	copy(padded, block)
	for i := len(block); i < blockSize; i++ {
		padded[i] = 0xFF
	}
	return padded
}

// esp8266EraseSize compensates for the esp8266 ROM's erase bug: asked
// to erase N bytes, the ROM erases anywhere up to twice that depending
// on where the region starts. The size returned here makes it erase
// exactly the region being written.
func esp8266EraseSize(offset, size uint32) uint32 {
	const sectorsPerBlock = protocol.FlashSector64K / protocol.FlashSectorSize

	sectors := (size + protocol.FlashSectorSize - 1) / protocol.FlashSectorSize
	startSector := offset / protocol.FlashSectorSize

	headSectors := sectorsPerBlock - startSector%sectorsPerBlock
	if sectors < headSectors {
		headSectors = sectors
	}

	// Inside the first erase block the ROM erases twice the requested
	// span, so ask for half. Past it, the overshoot is one block's head.
	if sectors < 2*headSectors {
		return (sectors + 1) / 2 * protocol.FlashSectorSize
	}
	return (sectors - headSectors) * protocol.FlashSectorSize
}
