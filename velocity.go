package ethercat

import "math"

// UnitsPerRevolution is the encoder resolution of the reference drive,
// a 17 bit encoder. The device profile may override it.
const UnitsPerRevolution int32 = 131072

// VelocityFromRPM converts a speed in revolutions per minute to the
// drive's native velocity unit (encoder counts per second).
func VelocityFromRPM(rpm float64, unitsPerRev int32) int32 {
	return int32(math.Round(rpm * float64(unitsPerRev) / 60.0))
}

// RPMFromVelocity is the inverse conversion, used for reporting.
func RPMFromVelocity(native int32, unitsPerRev int32) float64 {
	return float64(native) * 60.0 / float64(unitsPerRev)
}
