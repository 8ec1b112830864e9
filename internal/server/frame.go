package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"teltonika-codec/internal/codec"
)

const (
	frameHeaderLen = 8
	frameCRCLen    = 4
	maxHandshake   = 64
)

var (
	ErrBadPreamble  = errors.New("non zero preamble")
	ErrFrameTooLong = errors.New("frame exceeds size limit")
)

// ReadHandshake reads the 2 byte length prefixed identification packet and returns the
// IMEI it carries. The raw packet is returned as hex for logging.
func ReadHandshake(r io.Reader) (imei, raw string, err error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", "", err
	}
	n := int(binary.BigEndian.Uint16(lenBuf[:]))
	if n == 0 || n > maxHandshake {
		raw = codec.BytesToHex(lenBuf[:])
		return "", raw, fmt.Errorf("%w: handshake length %d", codec.ErrMalformedFrame, n)
	}

	buf := make([]byte, 2+n)
	copy(buf, lenBuf[:])
	if _, err := io.ReadFull(r, buf[2:]); err != nil {
		return "", "", err
	}
	raw = codec.BytesToHex(buf)
	imei, err = codec.IMEIFromHandshake(raw)
	return imei, raw, err
}

// ReadFrame reads one length delimited frame: a zero preamble, the 4 byte data field
// length, the data field and the 4 byte CRC. Frames larger than max bytes are rejected
// before their body is read.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint32(hdr[:4]) != 0 {
		return nil, fmt.Errorf("%w: % x", ErrBadPreamble, hdr[:4])
	}

	n := uint64(binary.BigEndian.Uint32(hdr[4:]))
	total := frameHeaderLen + n + frameCRCLen
	if max > 0 && total > uint64(max) {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLong, total, max)
	}

	frame := make([]byte, total)
	copy(frame, hdr[:])
	if _, err := io.ReadFull(r, frame[frameHeaderLen:]); err != nil {
		return nil, err
	}
	return frame, nil
}
