package codec

import "errors"

// Decode and encode failures. Every error returned by this package wraps one of
// these, so callers can match with errors.Is and still log the detailed message.
var (
	ErrMalformedHex     = errors.New("malformed hex")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrTruncatedFrame   = errors.New("truncated frame")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrEncoding         = errors.New("encoding error")
)

// ErrorKind returns a short label for err, used as a metrics label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMalformedHex):
		return "malformed_hex"
	case errors.Is(err, ErrChecksum):
		return "checksum"
	case errors.Is(err, ErrUnsupportedCodec):
		return "unsupported_codec"
	case errors.Is(err, ErrTruncatedFrame):
		return "truncated"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	default:
		return "other"
	}
}
