package codec

import (
	"encoding/hex"
	"fmt"
)

// Cursor reads sequential fields out of an immutable byte buffer.
// Every read advances the offset; reading past the end returns ErrTruncatedFrame
// and leaves the offset untouched.
type Cursor struct {
	buf []byte
	off int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Offset is the number of bytes consumed so far.
func (c *Cursor) Offset() int { return c.off }

// Remaining is the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Take returns the next n bytes. The slice aliases the underlying buffer.
func (c *Cursor) Take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: tried to read %d bytes at offset %d (len=%d)", ErrTruncatedFrame, n, c.off, len(c.buf))
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Skip discards the next n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.Take(n)
	return err
}

// Uint reads an n-byte big-endian unsigned integer, 1 <= n <= 8.
func (c *Cursor) Uint(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("%w: integer width %d", ErrMalformedFrame, n)
	}
	b, err := c.Take(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

// Hex reads n bytes and returns them as 2n lowercase hex digits.
func (c *Cursor) Hex(n int) (string, error) {
	b, err := c.Take(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
