package codec

import (
	"fmt"
	"math"
	"time"
)

const (
	codecIDOffset  = 8
	recordsOffset  = 9
	avlStartOffset = 10
	// codec id, leading and trailing record count
	avlOverhead = 3
)

// DecodeTelemetry decodes a Codec8 or Codec8E frame given as hex.
func DecodeTelemetry(s string) ([]TelemetryRecord, error) {
	frame, err := HexToBytes(s)
	if err != nil {
		return nil, err
	}
	return DecodeTelemetryFrame(frame)
}

// DecodeTelemetryFrame decodes a Codec8 or Codec8E frame. The CRC is checked before
// any AVL field is read. Records are returned in wire order.
func DecodeTelemetryFrame(frame []byte) ([]TelemetryRecord, error) {
	if len(frame) <= codecIDOffset {
		return nil, fmt.Errorf("%w: frame of %d bytes has no codec id", ErrTruncatedFrame, len(frame))
	}
	id := CodecID(frame[codecIDOffset])
	variant, ok := avlVariants[id]
	if !ok {
		return nil, fmt.Errorf("%w: codec id 0x%02x is not codec8/codec8e", ErrUnsupportedCodec, uint8(id))
	}
	if err := VerifyCRC(frame); err != nil {
		return nil, err
	}
	n, err := dataFieldLength(frame)
	if err != nil {
		return nil, err
	}
	if n < avlOverhead {
		return nil, fmt.Errorf("%w: data field length %d too small", ErrMalformedFrame, n)
	}

	count := int(frame[recordsOffset])
	dataEnd := avlStartOffset + n - avlOverhead
	c := NewCursor(frame[avlStartOffset:dataEnd])

	records := make([]TelemetryRecord, 0, count)
	for c.Remaining() > 0 {
		rec, err := decodeRecord(c, variant)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}

	trailer := int(frame[dataEnd])
	if trailer != count || len(records) != count {
		return nil, fmt.Errorf("%w: header says %d records, trailer %d, parsed %d", ErrMalformedFrame, count, trailer, len(records))
	}
	return records, nil
}

func decodeRecord(c *Cursor, v avlVariant) (TelemetryRecord, error) {
	rec := TelemetryRecord{Codec: v.codec, IO: make(map[uint16]IOItem)}

	ts, err := c.Uint(8)
	if err != nil {
		return rec, err
	}
	if ts > math.MaxInt64 {
		return rec, fmt.Errorf("%w: timestamp %d out of range", ErrMalformedFrame, ts)
	}
	rec.Timestamp = time.UnixMilli(int64(ts)).UTC()

	priority, err := c.Uint(1)
	if err != nil {
		return rec, err
	}
	rec.Priority = int(priority)

	lonRaw, err := c.Take(4)
	if err != nil {
		return rec, err
	}
	latRaw, err := c.Take(4)
	if err != nil {
		return rec, err
	}
	lon, err := DecodeCoordinate(lonRaw)
	if err != nil {
		return rec, fmt.Errorf("longitude: %w", err)
	}
	lat, err := DecodeCoordinate(latRaw)
	if err != nil {
		return rec, fmt.Errorf("latitude: %w", err)
	}
	rec.Location = EncodeGeoHash(lat, lon, GeoHashPrecision)

	fields := []struct {
		dst   *int
		width int
	}{
		{&rec.Altitude, 2},
		{&rec.Angle, 2},
		{&rec.Satellites, 1},
		{&rec.Speed, 2},
		{&rec.EventIOID, v.fieldWidth},
		{&rec.TotalIO, v.fieldWidth},
	}
	for _, f := range fields {
		x, err := c.Uint(f.width)
		if err != nil {
			return rec, err
		}
		*f.dst = int(x)
	}

	for _, width := range ioGroupWidths {
		if err := readIOGroup(c, v.fieldWidth, width, rec.IO); err != nil {
			return rec, fmt.Errorf("io group %dB: %w", width, err)
		}
	}
	if v.variableGroup {
		if err := readVariableIOGroup(c, v.fieldWidth, rec.IO); err != nil {
			return rec, fmt.Errorf("io group NX: %w", err)
		}
	}
	return rec, nil
}

// readIOGroup reads a count followed by that many (id, value) pairs of fixed width.
func readIOGroup(c *Cursor, fieldWidth, valueWidth int, io map[uint16]IOItem) error {
	count, err := c.Uint(fieldWidth)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		id, err := c.Uint(fieldWidth)
		if err != nil {
			return err
		}
		val, err := c.Take(valueWidth)
		if err != nil {
			return err
		}
		io[uint16(id)] = newIOItem(val)
	}
	return nil
}

// readVariableIOGroup reads the Codec8E NX group where each value carries its own
// 2 byte length. An empty group is just the count.
func readVariableIOGroup(c *Cursor, fieldWidth int, io map[uint16]IOItem) error {
	count, err := c.Uint(fieldWidth)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		id, err := c.Uint(fieldWidth)
		if err != nil {
			return err
		}
		size, err := c.Uint(2)
		if err != nil {
			return err
		}
		val, err := c.Take(int(size))
		if err != nil {
			return err
		}
		io[uint16(id)] = newIOItem(val)
	}
	return nil
}
