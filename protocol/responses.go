package protocol

import (
	"bytes"
	"encoding/binary"
)

// Response is a decoded ROM bootloader response frame.
type Response struct {
	// Direction is the leading frame byte. Only DirectionResponse frames
	// are real responses; readers skip everything else.
	Direction byte

	// Opcode echoes the command this frame answers.
	Opcode Command

	// Size is the data length the ROM claims, including the status
	// trailer.
	Size uint16

	// Value is the 32-bit result slot, meaningful for READ_REG.
	Value uint32

	// Data is the payload with the status trailer stripped.
	Data []byte

	// Status is StatusSuccess or StatusFailure.
	Status byte

	// Error is the ROM status code, meaningful when Status is
	// StatusFailure. Classify it with RomErrorKindFromCode.
	Error byte
}

// responseHeader is the fixed response prefix as laid out on the wire.
type responseHeader struct {
	Direction byte
	Opcode    byte
	Size      uint16
	Value     uint32
}

// ParseResponse decodes a response frame.
//
// Response frame structure:
//
//	[0x01][OPCODE][SIZE_L][SIZE_H][VALUE(4)][DATA...][STATUS][ERROR]
//
// The returned error is an I/O failure from decoding a truncated frame;
// callers classify it as an unreliable-stream condition. ParseResponse
// does not reject frames whose Direction is not DirectionResponse, the
// caller decides whether to skip them.
func ParseResponse(frame []byte) (*Response, error) {
	var hdr responseHeader
	if err := binary.Read(bytes.NewReader(frame), binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	resp := &Response{
		Direction: hdr.Direction,
		Opcode:    Command(hdr.Opcode),
		Size:      hdr.Size,
		Value:     hdr.Value,
	}

	data := frame[responseHeaderSize:]
	if len(data) >= statusTrailerSize {
		resp.Data = data[:len(data)-statusTrailerSize]
		resp.Status = data[len(data)-statusTrailerSize]
		resp.Error = data[len(data)-statusTrailerSize+1]
	} else {
		// No status trailer. Keep the bytes and leave Status zero.
		resp.Data = data
	}

	return resp, nil
}
