package codec

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// MessageType is the Codec12 type byte.
type MessageType uint8

const (
	TypeCommand     MessageType = 0x05
	TypeResponse    MessageType = 0x06
	TypeNotExecuted MessageType = 0x11
)

const (
	commandQuantity = 0x01
	typeOffset      = 10
	sizeOffset      = 11
	textOffset      = 15
)

// EncodedCommand is a Codec12 command frame ready to send to DeviceID, as uppercase hex.
type EncodedCommand struct {
	DeviceID string `json:"device_id"`
	Hex      string `json:"hex"`
}

// Bytes returns the binary frame.
func (e EncodedCommand) Bytes() ([]byte, error) {
	return HexToBytes(e.Hex)
}

// CmdResponse is the text carried by a Codec12 frame received from DeviceID.
type CmdResponse struct {
	DeviceID string      `json:"device_id"`
	Type     MessageType `json:"type"`
	Text     string      `json:"text"`
}

// BuildCodec12 builds a Codec12 command frame (type 0x05) carrying cmd.
//
//	frame   = 00000000 | dataSize(4B) | payload | crc(4B)
//	payload = 0x0C | 0x01 | 0x05 | cmdLen(4B) | cmd | 0x01
func BuildCodec12(cmd string) ([]byte, error) {
	if !utf8.ValidString(cmd) {
		return nil, fmt.Errorf("%w: command is not valid UTF-8", ErrEncoding)
	}
	cmdBytes := []byte(cmd)
	dataSize := 1 + 1 + 1 + 4 + len(cmdBytes) + 1
	if uint64(dataSize) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: command of %d bytes does not fit a 4 byte size", ErrEncoding, len(cmdBytes))
	}

	payload := make([]byte, 0, dataSize)
	payload = append(payload, byte(Codec12), commandQuantity, byte(TypeCommand))
	payload = append(payload, IntToBytes(4, uint64(len(cmdBytes)))...)
	payload = append(payload, cmdBytes...)
	payload = append(payload, commandQuantity)

	out := make([]byte, 0, headerLen+dataSize+crcFieldLen)
	out = append(out, 0, 0, 0, 0) // preamble
	out = append(out, IntToBytes(4, uint64(dataSize))...)
	out = append(out, payload...)
	out = append(out, IntToBytes(crcFieldLen, uint64(CRC16(payload)))...)
	return out, nil
}

// EncodeCommand encodes text as a Codec12 command for deviceID.
func EncodeCommand(text, deviceID string) (EncodedCommand, error) {
	frame, err := BuildCodec12(text)
	if err != nil {
		return EncodedCommand{}, err
	}
	return EncodedCommand{DeviceID: deviceID, Hex: strings.ToUpper(BytesToHex(frame))}, nil
}

// DecodeCommandResponse decodes a Codec12 frame given as hex.
func DecodeCommandResponse(s, deviceID string) (CmdResponse, error) {
	frame, err := HexToBytes(s)
	if err != nil {
		return CmdResponse{}, err
	}
	return DecodeCommandFrame(frame, deviceID)
}

// DecodeCommandFrame decodes a Codec12 frame and returns its text.
func DecodeCommandFrame(frame []byte, deviceID string) (CmdResponse, error) {
	if len(frame) <= codecIDOffset {
		return CmdResponse{}, fmt.Errorf("%w: frame of %d bytes has no codec id", ErrTruncatedFrame, len(frame))
	}
	if id := CodecID(frame[codecIDOffset]); id != Codec12 {
		return CmdResponse{}, fmt.Errorf("%w: codec id 0x%02x is not codec12", ErrUnsupportedCodec, uint8(id))
	}
	if err := VerifyCRC(frame); err != nil {
		return CmdResponse{}, err
	}
	n, err := dataFieldLength(frame)
	if err != nil {
		return CmdResponse{}, err
	}

	// the text must lie inside the CRC covered data field
	c := NewCursor(frame[:headerLen+n])
	if err := c.Skip(typeOffset); err != nil {
		return CmdResponse{}, err
	}
	typ, err := c.Uint(1)
	if err != nil {
		return CmdResponse{}, err
	}
	size, err := c.Uint(4)
	if err != nil {
		return CmdResponse{}, err
	}
	if size > uint64(c.Remaining()) {
		return CmdResponse{}, fmt.Errorf("%w: response size %d exceeds data field", ErrTruncatedFrame, size)
	}
	text, err := c.Take(int(size))
	if err != nil {
		return CmdResponse{}, err
	}
	return CmdResponse{DeviceID: deviceID, Type: MessageType(typ), Text: string(text)}, nil
}
