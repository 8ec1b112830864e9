package pipeline

import (
	"math"
	"testing"
	"time"

	"teltonika-codec/internal/codec"
)

func TestCalcFix(t *testing.T) {
	tests := []struct {
		name     string
		sats     int
		lat, lon float64
		want     int
	}{
		{"good fix", 9, 54.6872, 25.3, 1},
		{"few satellites", 3, 54.6872, 25.3, 0},
		{"null island", 12, 0, 0, 0},
		{"latitude out of range", 12, 91, 25.3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalcFix(tt.sats, tt.lat, tt.lon); got != tt.want {
				t.Errorf("CalcFix = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecideMsgType(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := DecideMsgType(false, now.Add(-30*time.Second), now); got != 1 {
		t.Errorf("recent single record = %d, want 1", got)
	}
	if got := DecideMsgType(true, now, now); got != 0 {
		t.Errorf("batch = %d, want 0", got)
	}
	if got := DecideMsgType(false, now.Add(-5*time.Minute), now); got != 0 {
		t.Errorf("stale record = %d, want 0", got)
	}
}

func sampleRecord() codec.TelemetryRecord {
	return codec.TelemetryRecord{
		Codec:      codec.Codec8,
		Timestamp:  time.UnixMilli(0x0000016B40D8EA30).UTC(),
		Priority:   1,
		Location:   codec.EncodeGeoHash(54.6872, 25.3, codec.GeoHashPrecision),
		Altitude:   128,
		Angle:      90,
		Satellites: 12,
		Speed:      40,
		EventIOID:  1,
		IO: map[uint16]codec.IOItem{
			239: {Size: 1, Val: 1},
			66:  {Size: 2, Val: 0x5E0F},
			900: {Size: 4, Val: 7},
			901: {Size: 12, Raw: make([]byte, 12)},
		},
	}
}

func TestBuildTracking(t *testing.T) {
	rec := sampleRecord()
	tr, err := BuildTracking("356307042441013", rec, false, "FMB920", "03.27.07", rec.Timestamp.Add(10*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if tr.IMEI != "356307042441013" || tr.Model != "FMB920" || tr.FWVer != "03.27.07" {
		t.Errorf("identity fields %+v", tr)
	}
	if tr.Datetime != "2019-06-10T10:04:46Z" {
		t.Errorf("Datetime = %q", tr.Datetime)
	}
	if math.Abs(tr.Lat-54.6872) > 1e-6 || math.Abs(tr.Lon-25.3) > 1e-6 {
		t.Errorf("position = (%v, %v)", tr.Lat, tr.Lon)
	}
	if tr.Fix != 1 || tr.MsgType != 1 {
		t.Errorf("fix=%d msg_type=%d, want 1/1", tr.Fix, tr.MsgType)
	}
	if tr.Spd != 40 || tr.Crs != 90 || tr.Alt != 128 || tr.Sats != 12 {
		t.Errorf("motion fields %+v", tr)
	}
	want := map[string]uint64{"ignition": 1, "ext_volt": 0x5E0F, "io_900": 7}
	if len(tr.PermIO) != len(want) {
		t.Errorf("PermIO = %v, want %v", tr.PermIO, want)
	}
	for k, v := range want {
		if tr.PermIO[k] != v {
			t.Errorf("PermIO[%s] = %d, want %d", k, tr.PermIO[k], v)
		}
	}
}

func TestBuildTrackingRejectsBadLocation(t *testing.T) {
	rec := sampleRecord()
	rec.Location = "not-a-hash"
	if _, err := BuildTracking("imei", rec, false, "", "", time.Now()); err == nil {
		t.Error("expected error for invalid geohash")
	}
}

func TestToStruct(t *testing.T) {
	rec := sampleRecord()
	tr, err := BuildTracking("356307042441013", rec, true, "", "", rec.Timestamp)
	if err != nil {
		t.Fatal(err)
	}
	st, err := ToStruct(tr)
	if err != nil {
		t.Fatal(err)
	}
	fields := st.GetFields()
	if fields["imei"].GetStringValue() != "356307042441013" {
		t.Errorf("imei = %v", fields["imei"])
	}
	if fields["msg_type"].GetNumberValue() != 0 {
		t.Errorf("msg_type = %v, want 0", fields["msg_type"])
	}
	if _, ok := fields["model"]; ok {
		t.Error("empty model should be omitted")
	}
	perm := fields["perm_io"].GetStructValue().GetFields()
	if perm["ignition"].GetNumberValue() != 1 {
		t.Errorf("perm_io.ignition = %v", perm["ignition"])
	}
}
