package codec

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

const signBit = 1 << 31

// DecodeCoordinate decodes a 4 byte sign-magnitude coordinate. The magnitude is written
// in decimal and a point is inserted after its first two digits, so 253000000 becomes
// 25.3 and 0x80000000|123456789 becomes -12.3456789.
//
// Magnitudes with fewer than two decimal digits cannot be split and are rejected.
func DecodeCoordinate(b []byte) (float64, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: coordinate needs 4 bytes, got %d", ErrMalformedFrame, len(b))
	}
	raw := binary.BigEndian.Uint32(b)
	negative := raw&signBit != 0
	digits := strconv.FormatUint(uint64(raw&^signBit), 10)
	if len(digits) < 2 {
		return 0, fmt.Errorf("%w: coordinate %08x has %d decimal digits", ErrMalformedFrame, raw, len(digits))
	}
	v, err := strconv.ParseFloat(digits[:2]+"."+digits[2:], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %08x: %v", ErrMalformedFrame, raw, err)
	}
	if negative {
		v = -v
	}
	return v, nil
}
