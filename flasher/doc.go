// Package flasher drives the serial ROM bootloader of Espressif chips.
// It owns the top level of the failure taxonomy: every error a flashing
// pipeline can produce is one variant of the closed Error set, carrying
// the pipeline stage and, for timeouts, the device command in flight.
//
// # Overview
//
// A Flasher runs the complete session against one device:
//   - Reset the chip into its ROM loader and sync the serial link
//   - Identify the chip from its magic register
//   - Attach the SPI flash and detect its size
//   - Load firmware into RAM, or write a flash image with verification
//
// # Basic Usage
//
// Flash a firmware ELF over the default port settings:
//
//	f, err := flasher.Connect("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	elf, _ := os.ReadFile("firmware.elf")
//	if err := f.LoadToFlash(elf, image.FormatBootloader); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
// Track long writes with a callback:
//
//	f, err := flasher.Connect(port,
//	    flasher.WithProgressCallback(func(p flasher.Progress) {
//	        fmt.Printf("[%s] %.1f%% - block %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentBlock, p.TotalBlocks)
//	    }),
//	)
//
// # Configuration Options
//
// Customize behavior with functional options:
//
//	f, err := flasher.Connect(port,
//	    flasher.WithLogger(myLogger),
//	    flasher.WithBaudRate(921600),
//	    flasher.WithTimeout(5*time.Second),
//	    flasher.WithVerifyFlash(false),
//	)
//
// # Error Handling
//
// Every failure is a variant of the sealed Error interface. Transport
// failures come wrapped in a *StageError naming the pipeline stage; the
// remaining variants are leaf diagnostics such as *UnrecognizedChipError
// or *RomFailureError. Diagnostic codes and hints surface through the
// optional interfaces in package diag:
//
//	if err := f.LoadToFlash(elf, format); err != nil {
//	    diag.NewRenderer(os.Stderr).Render(err)
//	}
package flasher
