// Command espflash writes firmware to Espressif chips over their serial
// ROM bootloader. It can flash images, load them into RAM, identify a
// connected board and work with partition tables.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/moffa90/go-espflash/config"
	"github.com/moffa90/go-espflash/connection"
	"github.com/moffa90/go-espflash/diag"
	"github.com/moffa90/go-espflash/flasher"
	"github.com/moffa90/go-espflash/image"
	"github.com/moffa90/go-espflash/partition"
)

const usage = `espflash writes firmware to Espressif chips over serial.

usage: espflash <command> [flags] [args]

commands:
  flash            write a firmware image to flash
  ram              load a firmware image into RAM and run it
  board-info       identify the connected chip and its flash
  partition-table  validate or convert a partition table CSV

common flags:
  --config    configuration file (default: search standard locations)
  --port      serial port (default: the single available port)
  --baud      baud rate used while flashing
  --verbose   enable debug logging
  --no-color  disable colored diagnostics

run 'espflash <command> -h' for the flags of one command.
`

// forceNoColor disables colored diagnostics for the whole invocation.
// Bound to the --no-color flag of every subcommand.
var forceNoColor bool

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "flash":
		err = runFlash(os.Args[2:])
	case "ram":
		err = runRAM(os.Args[2:])
	case "board-info":
		err = runBoardInfo(os.Args[2:])
	case "partition-table":
		err = runPartitionTable(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		renderError(err)
		os.Exit(1)
	}
}

// renderError prints err to stderr as a rich diagnostic: message, code,
// source snippet and hint when the error carries them.
func renderError(err error) {
	var opts []diag.RendererOption
	if forceNoColor {
		opts = append(opts, diag.WithColor(false))
	}
	diag.NewRenderer(os.Stderr, opts...).Render(err)
}

// commonFlags are accepted by every device-facing subcommand.
type commonFlags struct {
	configPath string
	port       string
	baud       int
	verbose    bool
}

func addCommonFlags(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.configPath, "config", "", "configuration file (default: search standard locations)")
	fs.StringVar(&cf.port, "port", "", "serial port of the device")
	fs.IntVar(&cf.baud, "baud", 0, "baud rate used while flashing")
	fs.BoolVar(&cf.verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&forceNoColor, "no-color", false, "disable colored diagnostics")
}

// slogAdapter exposes a slog.Logger through the flasher's Logger
// interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.l.Debug(msg, keysAndValues...)
}

func (a slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.l.Info(msg, keysAndValues...)
}

func (a slogAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.l.Error(msg, keysAndValues...)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolvePort picks the serial port: the --port flag first, then the
// configuration, then the single available port when there is exactly
// one.
func resolvePort(flagPort string, cfg *config.Config) (string, error) {
	if flagPort != "" {
		return flagPort, nil
	}
	if cfg.Connection.Port != "" {
		return cfg.Connection.Port, nil
	}

	ports, err := connection.ListPorts()
	if err != nil {
		return "", fmt.Errorf("listing serial ports: %w", err)
	}
	switch len(ports) {
	case 0:
		return "", errors.New("no serial port found, pass one with --port")
	case 1:
		return ports[0], nil
	default:
		return "", fmt.Errorf("multiple serial ports found (%s), pass one with --port",
			strings.Join(ports, ", "))
	}
}

func resolveBaud(flagBaud int, cfg *config.Config) int {
	if flagBaud > 0 {
		return flagBaud
	}
	return cfg.Connection.Baud
}

// flasherOptions builds the options shared by every device-facing
// subcommand from the flags and the loaded configuration.
func flasherOptions(cf commonFlags, cfg *config.Config) []flasher.Option {
	opts := []flasher.Option{
		flasher.WithLogger(slogAdapter{newLogger(cf.verbose)}),
		flasher.WithBaudRate(resolveBaud(cf.baud, cfg)),
	}
	if cfg.Flash.Size != "" {
		size, _ := flasher.ParseFlashSize(cfg.Flash.Size)
		opts = append(opts, flasher.WithFlashSize(size))
	}
	return opts
}

// progressPrinter renders transfer progress as a single updating line on
// its writer.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) report(prog flasher.Progress) {
	switch prog.Phase {
	case flasher.PhaseWriting:
		fmt.Fprintf(p.w, "\rwriting %3.0f%% (block %d/%d)", prog.Percentage, prog.CurrentBlock, prog.TotalBlocks)
	case flasher.PhaseVerifying:
		fmt.Fprintf(p.w, "\rverifying...%s", strings.Repeat(" ", 20))
	case flasher.PhaseComplete:
		fmt.Fprintf(p.w, "\rwrote %d bytes in %s%s\n",
			prog.BytesWritten, prog.ElapsedTime.Round(time.Millisecond), strings.Repeat(" ", 10))
	}
}

func runFlash(args []string) error {
	fs := flag.NewFlagSet("flash", flag.ExitOnError)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	format := fs.String("format", "", "image format: bootloader or direct-boot")
	tablePath := fs.String("partition-table", "", "partition table CSV written alongside the image")
	noVerify := fs.Bool("no-verify", false, "skip the post-write flash verification")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: espflash flash [flags] <image.elf>")
	}

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}

	elfPath := fs.Arg(0)
	elf, err := os.ReadFile(elfPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", elfPath, err)
	}

	formatID := image.FormatBootloader
	if name := firstNonEmpty(*format, cfg.Format); name != "" {
		if formatID, err = flasher.ParseImageFormat(name); err != nil {
			return err
		}
	}

	var table *partition.Table
	if tableSrc := firstNonEmpty(*tablePath, cfg.PartitionTable); tableSrc != "" {
		csv, err := os.ReadFile(tableSrc)
		if err != nil {
			return fmt.Errorf("reading %s: %w", tableSrc, err)
		}
		if table, err = flasher.ParsePartitionTable(string(csv)); err != nil {
			return err
		}
	}

	port, err := resolvePort(cf.port, cfg)
	if err != nil {
		return err
	}

	opts := flasherOptions(cf, cfg)
	opts = append(opts, flasher.WithProgressCallback(progressPrinter{os.Stdout}.report))
	if *noVerify {
		opts = append(opts, flasher.WithVerifyFlash(false))
	}

	f, err := flasher.Connect(port, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("chip: %s, flash: %s\n", f.Chip(), f.FlashSize())

	if table != nil {
		if err := f.WritePartitionTable(table); err != nil {
			return err
		}
	}
	if err := f.LoadToFlash(elf, formatID); err != nil {
		return err
	}
	return f.HardReset()
}

func runRAM(args []string) error {
	fs := flag.NewFlagSet("ram", flag.ExitOnError)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: espflash ram [flags] <image.elf>")
	}

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}

	elf, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading %s: %w", fs.Arg(0), err)
	}

	port, err := resolvePort(cf.port, cfg)
	if err != nil {
		return err
	}

	opts := flasherOptions(cf, cfg)
	opts = append(opts, flasher.WithProgressCallback(progressPrinter{os.Stdout}.report))

	f, err := flasher.Connect(port, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("chip: %s\n", f.Chip())

	// No reset afterwards: the chip is already running the loaded image.
	return f.LoadToRAM(elf)
}

func runBoardInfo(args []string) error {
	fs := flag.NewFlagSet("board-info", flag.ExitOnError)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	chipName := fs.String("chip", "", "fail unless the detected chip matches")
	fs.Parse(args)

	var want image.Chip
	checkChip := *chipName != ""
	if checkChip {
		var err error
		if want, err = image.ParseChip(*chipName); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return err
	}

	port, err := resolvePort(cf.port, cfg)
	if err != nil {
		return err
	}

	f, err := flasher.Connect(port, flasherOptions(cf, cfg)...)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("chip:  %s\n", f.Chip())
	fmt.Printf("flash: %s\n", f.FlashSize())

	if checkChip && f.Chip() != want {
		return fmt.Errorf("expected chip %s, found %s", want, f.Chip())
	}
	return f.HardReset()
}

func runPartitionTable(args []string) error {
	fs := flag.NewFlagSet("partition-table", flag.ExitOnError)
	output := fs.String("output", "", "write the binary form of the table to this file")
	fs.BoolVar(&forceNoColor, "no-color", false, "disable colored diagnostics")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: espflash partition-table [flags] <table.csv>")
	}

	source, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading %s: %w", fs.Arg(0), err)
	}
	table, err := flasher.ParsePartitionTable(string(source))
	if err != nil {
		return err
	}

	if *output != "" {
		bin, err := table.ToBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*output, bin, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", *output, err)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(bin), *output)
		return nil
	}

	fmt.Printf("%-16s %-6s %-10s %10s %10s\n", "name", "type", "subtype", "offset", "size")
	for _, p := range table.Partitions() {
		fmt.Printf("%-16s %-6s %-10s %#10x %#10x\n", p.Name, p.Type, p.SubType, p.Offset, p.Size)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
