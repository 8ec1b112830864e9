package codec

import (
	"encoding/binary"
	"time"
)

// CodecID is the codec identifier byte at offset 8 of every frame.
type CodecID uint8

const (
	Codec8  CodecID = 0x08
	Codec8E CodecID = 0x8E
	Codec12 CodecID = 0x0C
)

func (c CodecID) String() string {
	switch c {
	case Codec8:
		return "codec8"
	case Codec8E:
		return "codec8e"
	case Codec12:
		return "codec12"
	default:
		return "unknown"
	}
}

// ioGroupWidths are the value widths, in bytes, of the fixed IO groups in wire order.
var ioGroupWidths = []int{1, 2, 4, 8}

// avlVariant carries the field widths that differ between Codec8 and Codec8E.
type avlVariant struct {
	codec CodecID
	// width of event id, IO counts and IO ids
	fieldWidth int
	// Codec8E ends the IO section with a variable length group
	variableGroup bool
}

var avlVariants = map[CodecID]avlVariant{
	Codec8:  {codec: Codec8, fieldWidth: 1},
	Codec8E: {codec: Codec8E, fieldWidth: 2, variableGroup: true},
}

// IOItem is one IO element value. Val holds the big-endian value when Size <= 8.
type IOItem struct {
	Size int    `json:"size"`
	Val  uint64 `json:"val"`
	Raw  []byte `json:"raw,omitempty"`
}

func newIOItem(raw []byte) IOItem {
	item := IOItem{Size: len(raw), Raw: append([]byte(nil), raw...)}
	if len(raw) <= 8 {
		var buf [8]byte
		copy(buf[8-len(raw):], raw)
		item.Val = binary.BigEndian.Uint64(buf[:])
	}
	return item
}

// TelemetryRecord is a single AVL record. The raw coordinates are replaced by a
// geohash of GeoHashPrecision characters.
type TelemetryRecord struct {
	Codec      CodecID           `json:"codec"`
	Timestamp  time.Time         `json:"timestamp"`
	Priority   int               `json:"priority"`
	Location   string            `json:"location"`
	Altitude   int               `json:"altitude"`
	Angle      int               `json:"angle"`
	Satellites int               `json:"satellites"`
	Speed      int               `json:"speed"`
	EventIOID  int               `json:"event_io_id"`
	TotalIO    int               `json:"total_io"`
	IO         map[uint16]IOItem `json:"io"`
}
