package codec

import (
	"errors"
	"strings"
	"testing"
)

const (
	getvinFrame = "000000000000000e0c01050000000667657476696e010000670a"

	getioResponse = "00000000000000370C01060000002F44493" +
		"13A31204449323A30204449333A302041494" +
		"E313A302041494E323A313639323420444F31" +
		"3A3020444F323A3101000066E3"

	getinfoResponse = "00000000000000900C010600000088494E493A323031392F372F323" +
		"220373A3232205254433A323031392F372F323220373A353320525" +
		"3543A32204552523A312053523A302042523A302043463A3020464" +
		"73A3020464C3A302054553A302F302055543A3020534D533A30204" +
		"E4F4750533A303A3330204750533A31205341543A302052533A332" +
		"052463A36352053463A31204D443A30010000C78F"
)

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"getinfo", "000000000000000F0C010500000007676574696E666F0100004312"},
		{"getvin", strings.ToUpper(getvinFrame)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := EncodeCommand(tt.text, "defaultImei")
			if err != nil {
				t.Fatal(err)
			}
			want := EncodedCommand{DeviceID: "defaultImei", Hex: tt.want}
			if got != want {
				t.Errorf("EncodeCommand(%q) = %+v, want %+v", tt.text, got, want)
			}
		})
	}
}

func TestEncodeCommandRejectsInvalidUTF8(t *testing.T) {
	if _, err := EncodeCommand("get\xffver", "defaultImei"); !errors.Is(err, ErrEncoding) {
		t.Errorf("error = %v, want ErrEncoding", err)
	}
}

func TestEncodedCommandBytes(t *testing.T) {
	enc, err := EncodeCommand("getver", "imei")
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyCRC(b); err != nil {
		t.Errorf("encoded frame fails CRC: %v", err)
	}
	if len(b) != 4+4+1+1+1+4+len("getver")+1+4 {
		t.Errorf("frame length = %d", len(b))
	}
}

func TestDecodeCommandResponse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantType MessageType
		want     string
	}{
		{name: "getvin", in: getvinFrame, wantType: TypeCommand, want: "getvin"},
		{name: "getio", in: getioResponse, wantType: TypeResponse, want: "DI1:1 DI2:0 DI3:0 AIN1:0 AIN2:16924 DO1:0 DO2:1"},
		{
			name:     "getinfo",
			in:       getinfoResponse,
			wantType: TypeResponse,
			want: "INI:2019/7/22 7:22 RTC:2019/7/22 7:53 RST:2 ERR:1 SR:0 BR:0 CF:0 " +
				"FG:0 FL:0 TU:0/0 UT:0 SMS:0 NOGPS:0:30 GPS:1 SAT:0 RS:3 RF:65 " +
				"SF:1 MD:0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommandResponse(tt.in, "defaultImei")
			if err != nil {
				t.Fatal(err)
			}
			want := CmdResponse{DeviceID: "defaultImei", Type: tt.wantType, Text: tt.want}
			if got != want {
				t.Errorf("DecodeCommandResponse = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDecodeCommandResponseErrors(t *testing.T) {
	frame := mustHex(t, getvinFrame)
	// response size larger than the data field, CRC kept valid
	frame[14] = 0x20
	copy(frame[len(frame)-4:], IntToBytes(4, uint64(CRC16(frame[8:len(frame)-4]))))
	oversized := BytesToHex(frame)

	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "flipped checksum", in: getvinFrame[:len(getvinFrame)-2] + "0b", wantErr: ErrChecksum},
		{name: "telemetry codec", in: codec8Frame, wantErr: ErrUnsupportedCodec},
		{name: "codec13", in: getvinFrame[:16] + "0d" + getvinFrame[18:], wantErr: ErrUnsupportedCodec},
		{name: "odd length", in: getvinFrame + "0", wantErr: ErrMalformedHex},
		{name: "response size past data field", in: oversized, wantErr: ErrTruncatedFrame},
		{name: "header only", in: "00000000", wantErr: ErrTruncatedFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCommandResponse(tt.in, "defaultImei"); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
