package flasher

import (
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/protocol"
)

// LoadToRAM loads the ELF into the chip's RAM and jumps to its entry
// point. The image must be linked to run entirely from RAM; anything
// mapped to a flash window cannot be loaded this way.
func (f *Flasher) LoadToRAM(elf []byte) error {
	img, err := loadImage(elf)
	if err != nil {
		return err
	}
	if len(img.ROMSegments(f.chip)) > 0 {
		return &ElfNotRamLoadableError{}
	}

	start := time.Now()
	segs := img.RAMSegments(f.chip)

	totalBlocks := 0
	for _, seg := range segs {
		totalBlocks += blockCount(len(seg.Data), protocol.RAMBlockSize)
	}

	written := 0
	block := 0
	for _, seg := range segs {
		f.logInfo("loading segment",
			"addr", fmt.Sprintf("%#x", seg.Addr),
			"size", len(seg.Data),
		)

		blocks := blockCount(len(seg.Data), protocol.RAMBlockSize)
		_, err := f.command(protocol.CommandMemBegin,
			protocol.BuildMemBeginRequest(uint32(len(seg.Data)), uint32(blocks), protocol.RAMBlockSize, seg.Addr))
		if err != nil {
			return Flashing(err)
		}

		// RAM blocks are not padded; the ROM writes exactly what it gets.
		for seq := 0; seq < blocks; seq++ {
			lo := seq * protocol.RAMBlockSize
			hi := lo + protocol.RAMBlockSize
			if hi > len(seg.Data) {
				hi = len(seg.Data)
			}
			_, err := f.command(protocol.CommandMemData,
				protocol.BuildMemDataRequest(seg.Data[lo:hi], uint32(seq)))
			if err != nil {
				return Flashing(err)
			}

			written += hi - lo
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

	if err := f.memEnd(img.Entry); err != nil {
		return err
	}

	f.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentBlock: totalBlocks,
		TotalBlocks:  totalBlocks,
		Percentage:   100,
		BytesWritten: written,
		ElapsedTime:  time.Since(start),
	})
	f.logInfo("ram load complete",
		"entry", fmt.Sprintf("%#x", img.Entry),
		"bytes", written,
	)
	return nil
}

// memEnd jumps to the entry point. The ROM usually takes the jump
// before answering, so a timeout here is success.
func (f *Flasher) memEnd(entry uint32) error {
	_, err := f.command(protocol.CommandMemEnd, protocol.BuildMemEndRequest(entry))
	if err != nil {
		var timeout *connection.TimeoutError
		if errors.As(err, &timeout) {
			return nil
		}
		return Flashing(err)
	}
	return nil
}
