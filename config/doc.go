// Package config loads the settings shared by the espflash command line
// tools: the serial port and baud rate, flash overrides, and the default
// image format and partition table.
//
// Settings come from three layers, later layers winning: built-in
// defaults, a TOML file, and ESPFLASH_* environment variables. The file
// is optional; when no path is given the locations from Paths are
// searched, and when none exists the defaults are used as-is.
package config
