package codec

import (
	"fmt"
	"strconv"
)

const imeiDigits = 15

// IsIMEI reports whether s is an identification handshake: a 2 byte length equal to
// the number of following bytes, followed by exactly 15 ASCII digits.
func IsIMEI(s string) bool {
	_, err := IMEIFromHandshake(s)
	return err == nil
}

// IMEIFromHandshake returns the IMEI carried by a handshake frame given as hex.
func IMEIFromHandshake(s string) (string, error) {
	if len(s) < 4 {
		return "", fmt.Errorf("%w: handshake of %d hex digits", ErrTruncatedFrame, len(s))
	}
	n, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return "", fmt.Errorf("%w: handshake length %q", ErrMalformedHex, s[:4])
	}
	if int(n) != len(s[4:])/2 || len(s[4:])%2 != 0 {
		return "", fmt.Errorf("%w: handshake length %d, payload of %d hex digits", ErrMalformedFrame, n, len(s[4:]))
	}
	b, err := HexToBytes(s[4:])
	if err != nil {
		return "", err
	}
	if len(b) != imeiDigits {
		return "", fmt.Errorf("%w: imei has %d characters", ErrMalformedFrame, len(b))
	}
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("%w: imei contains non digit 0x%02x", ErrMalformedFrame, ch)
		}
	}
	return string(b), nil
}
