package fmxxx

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		id       uint16
		wantName string
		wantSize int
		wantOK   bool
	}{
		{Ignition, "ignition", 1, true},
		{ExtVolt, "ext_volt", 2, true},
		{TotalOdom, "total_odometer", 4, true},
		{ICCID2, "iccid2", 8, true},
		{9999, "", 0, false},
	}
	for _, tt := range tests {
		e, ok := Lookup(tt.id)
		if ok != tt.wantOK || e.Name != tt.wantName || e.Size != tt.wantSize {
			t.Errorf("Lookup(%d) = %+v, %v; want %q/%d, %v", tt.id, e, ok, tt.wantName, tt.wantSize, tt.wantOK)
		}
	}
}

func TestElementNamesUnique(t *testing.T) {
	seen := make(map[string]uint16)
	for id, e := range elements {
		if prev, dup := seen[e.Name]; dup {
			t.Errorf("name %q used by %d and %d", e.Name, prev, id)
		}
		seen[e.Name] = id
	}
}
