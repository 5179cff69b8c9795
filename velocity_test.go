package ethercat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVelocityFromRPM(t *testing.T) {
	assert.Equal(t, int32(21845), VelocityFromRPM(10, UnitsPerRevolution))
	assert.Equal(t, int32(-21845), VelocityFromRPM(-10, UnitsPerRevolution))
	assert.Equal(t, int32(131072), VelocityFromRPM(60, UnitsPerRevolution))
	assert.Equal(t, int32(0), VelocityFromRPM(0, UnitsPerRevolution))
}

func TestVelocityRoundTrip(t *testing.T) {
	for rpm := -3000; rpm <= 3000; rpm += 7 {
		native := VelocityFromRPM(float64(rpm), UnitsPerRevolution)
		back := RPMFromVelocity(native, UnitsPerRevolution)
		// One native unit of rounding is well under this
		assert.InDelta(t, float64(rpm), back, 0.001)
	}
}
