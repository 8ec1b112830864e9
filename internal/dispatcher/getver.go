package dispatcher

import (
	"context"
	"regexp"
	"strings"

	"teltonika-codec/internal/store"
)

var (
	reVer  = regexp.MustCompile(`(?i)\bver:([^\s]+(?:\s+Rev:?\s*\d+)?)`)
	reHw   = regexp.MustCompile(`(?i)\bhw:([A-Za-z0-9_-]+)`)
	reIMEI = regexp.MustCompile(`(?i)\bimei:([0-9]{14,17})`)
)

type DeviceVersion struct {
	IMEI     string
	Model    string
	Firmware string
	Raw      string
}

// ParseGetVer extracts firmware, hardware model and IMEI from a getver answer.
// imei is used when the text does not carry one.
func ParseGetVer(imei, text string) DeviceVersion {
	dv := DeviceVersion{IMEI: imei, Raw: text}
	if m := reVer.FindStringSubmatch(text); len(m) > 1 {
		dv.Firmware = strings.TrimSpace(m[1])
	}
	if m := reHw.FindStringSubmatch(text); len(m) > 1 {
		dv.Model = strings.TrimSpace(m[1])
	}
	if m := reIMEI.FindStringSubmatch(text); len(m) > 1 {
		dv.IMEI = strings.TrimSpace(m[1])
	}
	return dv
}

func (d *Dispatcher) HandleGetVerResponse(ctx context.Context, imei, text string) DeviceVersion {
	dv := ParseGetVer(imei, text)
	d.logger.Info("getver response", "imei", dv.IMEI, "model", dv.Model, "fw", dv.Firmware)

	if dv.Firmware != "" {
		d.saveString(ctx, store.DeviceKey(dv.IMEI, "fw"), dv.Firmware)
	}
	if dv.Model != "" {
		d.saveString(ctx, store.DeviceKey(dv.IMEI, "model"), dv.Model)
	}
	d.saveString(ctx, store.DeviceKey(dv.IMEI, "getver_raw"), dv.Raw)
	return dv
}
