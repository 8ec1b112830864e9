package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"teltonika-codec/internal/codec"
	"teltonika-codec/internal/codec/fmxxx"
)

// liveWindow is how old a record may be and still count as live.
const liveWindow = 120 * time.Second

func coordsValid(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

func CalcFix(sats int, lat, lon float64) int {
	if sats > 3 && coordsValid(lat, lon) {
		return 1
	}
	return 0
}

// DecideMsgType returns 1 for a live record and 0 for a buffered one. Records that come
// in a batch, or are older than liveWindow at now, are buffered.
func DecideMsgType(isBatch bool, ts, now time.Time) int {
	if isBatch {
		return 0
	}
	if !ts.IsZero() && now.Sub(ts) > liveWindow {
		return 0
	}
	return 1
}

// PermIO names the IO values of a record. Unknown ids are kept as "io_<id>".
func PermIO(io map[uint16]codec.IOItem) map[string]uint64 {
	out := make(map[string]uint64, len(io))
	for id, item := range io {
		if item.Size > 8 {
			continue
		}
		name := "io_" + strconv.Itoa(int(id))
		if e, ok := fmxxx.Lookup(id); ok {
			name = e.Name
		}
		out[name] = item.Val
	}
	return out
}

// BuildTracking converts a decoded record into a TrackingObject. The position is the
// centre of the record's geohash cell.
func BuildTracking(
	imei string,
	rec codec.TelemetryRecord,
	isBatch bool,
	model, fw string,
	now time.Time,
) (*TrackingObject, error) {
	lat, lon, err := codec.DecodeGeoHash(rec.Location)
	if err != nil {
		return nil, fmt.Errorf("record location: %w", err)
	}
	return &TrackingObject{
		IMEI:     imei,
		Model:    model,
		FWVer:    fw,
		Datetime: rec.Timestamp.UTC().Format(time.RFC3339),
		GeoHash:  rec.Location,
		Lat:      lat,
		Lon:      lon,
		Alt:      rec.Altitude,
		Spd:      rec.Speed,
		Crs:      rec.Angle,
		Sats:     rec.Satellites,
		Priority: rec.Priority,
		EventID:  rec.EventIOID,
		PermIO:   PermIO(rec.IO),
		MsgType:  DecideMsgType(isBatch, rec.Timestamp, now),
		Fix:      CalcFix(rec.Satellites, lat, lon),
	}, nil
}

// ToStruct renders tr with its JSON field names as a protobuf Struct.
func ToStruct(tr *TrackingObject) (*structpb.Struct, error) {
	b, err := json.Marshal(tr)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
