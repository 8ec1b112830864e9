package dispatcher

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"teltonika-codec/internal/codec/fmxxx"
	"teltonika-codec/internal/store"
)

const minICCIDLen = 18

// Each getparam value is a uint64 whose 8 big-endian bytes are ASCII digits or padding.
// Example: 4051327829469704249 -> "89520209"
func decodeICCIDChunk(u uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)

	var sb strings.Builder
	for _, b := range buf {
		if b >= '0' && b <= '9' {
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

func decodeICCIDFromUintParts(p1, p2, p3 uint64) string {
	return decodeICCIDChunk(p1) + decodeICCIDChunk(p2) + decodeICCIDChunk(p3)
}

// ParseICCID extracts the ICCID from a getimeiccid or getparam 219,220,221 answer.
func ParseICCID(text string) (string, bool) {
	t := strings.TrimSpace(text)
	lt := strings.ToLower(t)

	// "ICCID: 8952020924380762238"
	if idx := strings.Index(lt, "iccid:"); idx >= 0 {
		val := strings.Fields(lt[idx+len("iccid:"):])
		if len(val) == 0 || len(val[0]) < minICCIDLen {
			return "", false
		}
		return val[0], true
	}

	// "Param values: 219:4051327829469704249, 220:3617572717105460786, 221:3617296498359795712"
	if strings.Contains(lt, "param values") {
		m := parseICCIDParts(t)
		var parts [3]uint64
		for i, id := range []int{fmxxx.ICCID1, fmxxx.ICCID2, fmxxx.ICCID3} {
			s, ok := m[id]
			if !ok {
				return "", false
			}
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return "", false
			}
			parts[i] = u
		}
		iccid := decodeICCIDFromUintParts(parts[0], parts[1], parts[2])
		if len(iccid) < minICCIDLen {
			return "", false
		}
		return iccid, true
	}
	return "", false
}

func (d *Dispatcher) HandleICCIDResponse(ctx context.Context, imei, text string) {
	iccid, ok := ParseICCID(text)
	if !ok {
		d.logger.Warn("unusable iccid response", "imei", imei, "text", text)
		return
	}
	d.saveString(ctx, store.DeviceKey(imei, "iccid"), iccid)
	d.logger.Info("iccid stored", "imei", imei, "iccid", iccid)
}

// parseICCIDParts returns map[id]decimal value from a getparam answer.
func parseICCIDParts(s string) map[int]string {
	out := map[int]string{}
	idx := strings.Index(strings.ToLower(s), "param values:")
	if idx >= 0 {
		s = s[idx+len("param values:"):]
	}
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		var id int
		var val string
		if n, _ := fmt.Sscanf(c, "%d:%s", &id, &val); n == 2 {
			out[id] = strings.TrimSpace(val)
		}
	}
	return out
}
