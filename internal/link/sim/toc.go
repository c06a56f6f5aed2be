package sim

const (
	varBaroASL          = "baro.asl"
	varBaroPressure     = "baro.pressure"
	varBaroTemp         = "baro.temp"
	varStabilizerRoll   = "stabilizer.roll"
	varStabilizerPitch  = "stabilizer.pitch"
	varStabilizerYaw    = "stabilizer.yaw"
	varStabilizerThrust = "stabilizer.thrust"
	varBatteryVoltage   = "pm.vbat"
)

// toc lists the log variables the simulated device exposes
var toc = map[string]struct{}{
	varBaroASL:          {},
	varBaroPressure:     {},
	varBaroTemp:         {},
	varStabilizerRoll:   {},
	varStabilizerPitch:  {},
	varStabilizerYaw:    {},
	varStabilizerThrust: {},
	varBatteryVoltage:   {},
}
