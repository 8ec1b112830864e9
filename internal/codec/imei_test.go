package codec

import "testing"

func TestIsIMEI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "valid handshake", in: "000F333536333037303432343431303133", want: true},
		{name: "lowercase hex", in: "000f333536333037303432343431303133", want: true},
		{name: "length mismatch", in: "0010333536333037303432343431303133", want: false},
		{name: "14 digits", in: "000E3335363330373034323434313031", want: false},
		{name: "non digit", in: "000F33353633303730343234343130314A", want: false},
		{name: "odd payload", in: "000F33353633303730343234343130313", want: false},
		{name: "too short", in: "00", want: false},
		{name: "not hex", in: "zz0F333536333037303432343431303133", want: false},
		{name: "data frame", in: getvinFrame, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIMEI(tt.in); got != tt.want {
				t.Errorf("IsIMEI(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIMEIFromHandshake(t *testing.T) {
	imei, err := IMEIFromHandshake("000F333536333037303432343431303133")
	if err != nil {
		t.Fatal(err)
	}
	if imei != "356307042441013" {
		t.Errorf("IMEIFromHandshake = %q, want 356307042441013", imei)
	}
}
