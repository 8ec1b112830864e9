package codec

import (
	"encoding/hex"
	"fmt"
)

// HexToBytes decodes s into bytes. Upper and lower case digits are accepted.
func HexToBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// BytesToHex renders b as lowercase hex, two characters per byte.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// IntToBytes renders v big-endian into length bytes. Bits above length*8 are dropped.
func IntToBytes(length int, v uint64) []byte {
	if length <= 0 {
		return []byte{}
	}
	out := make([]byte, length)
	for i := 0; i < length && i < 8; i++ {
		out[length-1-i] = byte(v >> (8 * i))
	}
	return out
}
