// Package image loads firmware from ELF files and lays it out for the
// supported Espressif chips.
//
// A FirmwareImage is the chip-independent view of an ELF: an entry point
// plus loadable segments. Chip decides which addresses live in mapped
// flash and which in RAM, and BuildFlashImage turns a FirmwareImage into
// the byte ranges a flasher writes.
package image
