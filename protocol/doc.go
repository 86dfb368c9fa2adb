// Package protocol implements the Espressif ROM bootloader serial protocol.
//
// This package builds command frames and parses response frames for the
// first-stage ROM loader found on ESP8266, ESP32 and ESP32-C3 devices. It
// says nothing about the transport; frames are exchanged over a SLIP-framed
// serial line by the connection package.
//
// # Protocol Overview
//
// Every exchange is a request followed by one or more responses:
//
//	Request:  [0x00][OPCODE][SIZE_L][SIZE_H][CHECKSUM (4 bytes)][DATA...]
//	Response: [0x01][OPCODE][SIZE_L][SIZE_H][VALUE (4 bytes)][DATA...][STATUS][ERROR]
//
// Where:
//   - SIZE = 16-bit payload length (little-endian)
//   - CHECKSUM = 32-bit XOR checksum of the data written by block commands
//     (little-endian, zero for commands that carry none)
//   - VALUE = 32-bit command result, only meaningful for READ_REG
//   - STATUS = 0 on success, 1 on failure
//   - ERROR = ROM status code when STATUS is 1, see RomErrorKind
//
// # Command Builders
//
// Use the Build* functions to create request frames:
//
//	frame := protocol.BuildSyncRequest()
//	frame := protocol.BuildFlashDataRequest(block, seq)
//	// ... etc
//
// # Response Parsing
//
// Use ParseResponse to decode a response frame:
//
//	resp, err := protocol.ParseResponse(frame)
//	if err != nil {
//	    return err
//	}
//	if resp.Status != protocol.StatusSuccess {
//	    return protocol.NewRomError(cmd, protocol.RomErrorKindFromCode(resp.Error))
//	}
//
// # Error Handling
//
// A response with a nonzero status byte carries a ROM status code. The code
// is classified into a RomErrorKind, which is total: every possible byte
// maps to a kind, unknown codes map to RomOther.
package protocol
