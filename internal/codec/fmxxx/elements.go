// Package fmxxx names the IO elements reported by FMxxx trackers.
package fmxxx

// Element describes a known IO element: its name and the value width it is sent with.
type Element struct {
	Name string
	Size int
}

// Frequently used ids.
const (
	DIn1         = 1
	DIn2         = 2
	GSMSignal    = 21
	ExtVolt      = 66
	BatteryVolt  = 67
	BattLevel    = 113
	TotalOdom    = 16
	DOut1        = 179
	Ignition     = 239
	Movement     = 240
	ActiveGsmOpe = 241

	AIn1Id         = 9
	AIn2Id         = 6
	PulseCountDin1 = 4

	// ICCID is reported split across three 8 byte parameters
	ICCID1 = 219
	ICCID2 = 220
	ICCID3 = 221
)

var elements = map[uint16]Element{
	// 1 byte
	DIn1:      {"din1", 1},
	DIn2:      {"din2", 1},
	3:         {"din3", 1},
	10:        {"sd_status", 1},
	GSMSignal: {"gsm_signal", 1},
	29:        {"ble_batt1", 1},
	69:        {"gnss_status", 1},
	80:        {"data_mode", 1},
	BattLevel: {"batt_level", 1},
	DOut1:     {"dout1", 1},
	180:       {"dout2", 1},
	200:       {"sleep_mode", 1},
	202:       {"lls1_temp", 1},
	204:       {"lls2_temp", 1},
	237:       {"network_type", 1},
	Ignition:  {"ignition", 1},
	Movement:  {"movement", 1},
	263:       {"bt_status", 1},
	303:       {"instant_movement", 1},
	380:       {"dout3", 1},
	381:       {"gnd_sense", 1},
	637:       {"wake_reason", 1},

	// 2 bytes
	AIn2Id:      {"ain2", 2},
	AIn1Id:      {"ain1", 2},
	13:          {"fuel_rate_gps", 2},
	15:          {"eco_score", 2},
	17:          {"axis_x", 2},
	18:          {"axis_y", 2},
	19:          {"axis_z", 2},
	24:          {"vehicle_speed", 2},
	25:          {"ble_temp1", 2},
	ExtVolt:     {"ext_volt", 2},
	BatteryVolt: {"battery_volt", 2},
	68:          {"batt_current", 2},
	86:          {"ble_humidity1", 2},
	181:         {"gnss_pdop", 2},
	182:         {"gnss_hdop", 2},
	201:         {"lls1_fuel_level", 2},
	203:         {"lls2_fuel_level", 2},
	205:         {"gsm_cell_id", 2},
	206:         {"gsm_area_code", 2},
	329:         {"ain_speed", 2},

	// 4 bytes
	PulseCountDin1: {"pulse_count_din1", 4},
	5:              {"pulse_count_din2", 4},
	12:             {"fuel_used_gps", 4},
	TotalOdom:      {"total_odometer", 4},
	72:             {"dallas_temp1", 4},
	73:             {"dallas_temp2", 4},
	74:             {"dallas_temp3", 4},
	75:             {"dallas_temp4", 4},
	199:            {"trip_odometer", 4},
	ActiveGsmOpe:   {"active_gsm_operator", 4},
	636:            {"umts_lte_cell_id", 4},
	1148:           {"conn_quality", 4},

	// 8 bytes
	ICCID1: {"iccid1", 8},
	ICCID2: {"iccid2", 8},
	ICCID3: {"iccid3", 8},
}

// Lookup returns the element registered for id.
func Lookup(id uint16) (Element, bool) {
	e, ok := elements[id]
	return e, ok
}
