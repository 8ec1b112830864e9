package codec

import (
	"errors"
	"testing"
)

func TestCursorSequentialReads(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})

	v, err := c.Uint(1)
	if err != nil || v != 0x01 {
		t.Fatalf("Uint(1) = %#x, %v", v, err)
	}
	v, err = c.Uint(2)
	if err != nil || v != 0x0203 {
		t.Fatalf("Uint(2) = %#x, %v", v, err)
	}
	h, err := c.Hex(2)
	if err != nil || h != "0405" {
		t.Fatalf("Hex(2) = %q, %v", h, err)
	}
	if c.Offset() != 5 || c.Remaining() != 2 {
		t.Fatalf("Offset=%d Remaining=%d, want 5 and 2", c.Offset(), c.Remaining())
	}
	if err := c.Skip(2); err != nil {
		t.Fatalf("Skip(2): %v", err)
	}
	if c.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", c.Remaining())
	}
}

func TestCursorUnderrun(t *testing.T) {
	c := NewCursor([]byte{0xAA, 0xBB})
	if _, err := c.Take(3); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("Take(3) error = %v, want ErrTruncatedFrame", err)
	}
	if c.Offset() != 0 {
		t.Errorf("failed read moved offset to %d", c.Offset())
	}
	if _, err := c.Uint(4); !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("Uint(4) error = %v, want ErrTruncatedFrame", err)
	}
	if _, err := c.Uint(9); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Uint(9) error = %v, want ErrMalformedFrame", err)
	}
}
