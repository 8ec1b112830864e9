package codec

import (
	"encoding/binary"
	"fmt"
)

const (
	crcPoly = 0xA001 // 0x8005 reflected

	// frame header: 4 byte preamble + 4 byte data field length
	headerLen   = 8
	crcFieldLen = 4
)

// CRC16 computes CRC-16/ARC (a.k.a. CRC-16/IBM): init 0, reflected, no final xor.
func CRC16(b []byte) uint16 {
	var crc uint16
	for _, v := range b {
		crc ^= uint16(v)
		for i := 0; i < 8; i++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// dataFieldLength reads the declared payload length from the frame header and checks
// that the payload and the 4 byte CRC trailer are present.
func dataFieldLength(frame []byte) (int, error) {
	if len(frame) < headerLen {
		return 0, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncatedFrame, headerLen, len(frame))
	}
	n := binary.BigEndian.Uint32(frame[4:headerLen])
	if uint64(n)+headerLen+crcFieldLen > uint64(len(frame)) {
		return 0, fmt.Errorf("%w: data field length %d exceeds frame of %d bytes", ErrMalformedFrame, n, len(frame))
	}
	return int(n), nil
}

// VerifyCRC checks the CRC over the data field of frame against its 4 byte trailer.
func VerifyCRC(frame []byte) error {
	n, err := dataFieldLength(frame)
	if err != nil {
		return err
	}
	payload := frame[headerLen : headerLen+n]
	got := binary.BigEndian.Uint32(frame[headerLen+n : headerLen+n+crcFieldLen])
	want := uint32(CRC16(payload))
	if got != want {
		return fmt.Errorf("%w: trailer %08x, computed %08x", ErrChecksum, got, want)
	}
	return nil
}
