package ethercat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	profile := DefaultProfile()
	assert.Equal(t, uint32(0x00202008), profile.VendorID)
	assert.Equal(t, uint32(0), profile.ProductCode)
	assert.Equal(t, int32(131072), profile.UnitsPerRev)
	assert.Equal(t, uint16(1000), profile.MaxTorque)
	assert.Equal(t, int8(9), profile.Mode)
	assert.Equal(t, uint8(2), profile.InterpolationMs)
}

func TestProfileObjectNames(t *testing.T) {
	profile := DefaultProfile()
	assert.Equal(t, "Controlword", profile.ObjectName(0x6040, 0))
	assert.Equal(t, "Statusword", profile.ObjectName(0x6041, 0))
	assert.Equal(t, "Interpolation time period value", profile.ObjectName(0x60C2, 1))
	// Unknown sub index falls back to the index entry
	assert.Equal(t, "Target velocity", profile.ObjectName(0x60FF, 3))
	// Fully unknown objects fall back to raw addressing
	assert.Equal(t, "x5FFE:00", profile.ObjectName(0x5FFE, 0))
}

func TestParseProfileMissingKeys(t *testing.T) {
	source := []byte(`
[DeviceInfo]
VendorNumber=0x1
ProductNumber=0x2

[DriveProfile]
MaxTorque=1000
OperatingMode=9
InterpolationPeriodMs=2
`)
	_, err := ParseProfile(source)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrProfileMissing)
}
