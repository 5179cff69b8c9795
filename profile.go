package ethercat

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"gopkg.in/ini.v1"
)

// Object indexes of the drive profile used outside the cyclic mapping
const (
	objErrorCode           uint16 = 0x603F
	objInterpolationPeriod uint16 = 0x60C2
)

// The embedded device description, EDS style. Everything device specific
// lives here : identity, scaling constants and the names of the mapped
// objects (used for logging only, the cyclic layout itself is fixed in
// the process image types).
const defaultProfileSource = `
[FileInfo]
Description=MyActuator servo drive, cyclic synchronous velocity setup

[DeviceInfo]
VendorName=MyActuator
VendorNumber=0x00202008
ProductNumber=0x00000000

[DriveProfile]
UnitsPerRevolution=131072
MaxTorque=1000
OperatingMode=9
InterpolationPeriodMs=2

[603F]
ParameterName=Error code

[6040]
ParameterName=Controlword

[6041]
ParameterName=Statusword

[6060]
ParameterName=Modes of operation

[6061]
ParameterName=Modes of operation display

[6064]
ParameterName=Position actual value

[606C]
ParameterName=Velocity actual value

[6071]
ParameterName=Target torque

[6072]
ParameterName=Max torque

[6077]
ParameterName=Torque actual value

[607A]
ParameterName=Target position

[60C2]
ParameterName=Interpolation time period

[60C2sub1]
ParameterName=Interpolation time period value

[60FF]
ParameterName=Target velocity
`

// Profile holds the device constants parsed from an EDS style
// description.
type Profile struct {
	VendorID    uint32
	ProductCode uint32
	UnitsPerRev int32
	MaxTorque   uint16
	Mode        int8
	// Interpolation period communicated over SDO at startup, in ms
	InterpolationMs uint8

	names map[uint32]string
}

var matchIdxRegExp = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)
var matchSubIdxRegExp = regexp.MustCompile(`^([0-9A-Fa-f]{4})sub([0-9A-Fa-f]+)$`)

// ParseProfile loads a device profile from EDS style ini data.
func ParseProfile(source any) (*Profile, error) {
	file, err := ini.Load(source)
	if err != nil {
		return nil, err
	}
	device := file.Section("DeviceInfo")
	drive := file.Section("DriveProfile")
	profile := &Profile{names: make(map[uint32]string)}

	vendor, err := strconv.ParseUint(device.Key("VendorNumber").String(), 0, 32)
	if err != nil {
		return nil, fmt.Errorf("parsing VendorNumber : %w", err)
	}
	product, err := strconv.ParseUint(device.Key("ProductNumber").String(), 0, 32)
	if err != nil {
		return nil, fmt.Errorf("parsing ProductNumber : %w", err)
	}
	profile.VendorID = uint32(vendor)
	profile.ProductCode = uint32(product)

	unitsPerRev, err := drive.Key("UnitsPerRevolution").Int()
	if err != nil || unitsPerRev <= 0 {
		return nil, fmt.Errorf("%w : UnitsPerRevolution", ErrProfileMissing)
	}
	profile.UnitsPerRev = int32(unitsPerRev)
	maxTorque, err := drive.Key("MaxTorque").Uint()
	if err != nil {
		return nil, fmt.Errorf("%w : MaxTorque", ErrProfileMissing)
	}
	profile.MaxTorque = uint16(maxTorque)
	mode, err := drive.Key("OperatingMode").Int()
	if err != nil {
		return nil, fmt.Errorf("%w : OperatingMode", ErrProfileMissing)
	}
	profile.Mode = int8(mode)
	interpolation, err := drive.Key("InterpolationPeriodMs").Uint()
	if err != nil {
		return nil, fmt.Errorf("%w : InterpolationPeriodMs", ErrProfileMissing)
	}
	profile.InterpolationMs = uint8(interpolation)

	// Collect object names, index sections first then sub index sections
	for _, section := range file.Sections() {
		name := section.Name()
		if matchIdxRegExp.MatchString(name) {
			idx, err := strconv.ParseUint(name, 16, 16)
			if err != nil {
				return nil, err
			}
			profile.names[uint32(idx)<<8] = section.Key("ParameterName").String()
		} else if match := matchSubIdxRegExp.FindStringSubmatch(name); match != nil {
			idx, err := strconv.ParseUint(match[1], 16, 16)
			if err != nil {
				return nil, err
			}
			sub, err := strconv.ParseUint(match[2], 16, 8)
			if err != nil {
				return nil, err
			}
			profile.names[uint32(idx)<<8|uint32(sub)] = section.Key("ParameterName").String()
		}
	}
	return profile, nil
}

// ObjectName looks up the human readable name of an object, falling back
// to the index section then to the raw index.
func (p *Profile) ObjectName(index uint16, subindex uint8) string {
	if name, ok := p.names[uint32(index)<<8|uint32(subindex)]; ok && name != "" {
		return name
	}
	if name, ok := p.names[uint32(index)<<8]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("x%04X:%02X", index, subindex)
}

var defaultProfile *Profile
var defaultProfileOnce sync.Once

// DefaultProfile returns the embedded reference drive profile.
func DefaultProfile() *Profile {
	defaultProfileOnce.Do(func() {
		profile, err := ParseProfile([]byte(defaultProfileSource))
		if err != nil {
			panic(fmt.Sprintf("embedded device profile is invalid : %v", err))
		}
		defaultProfile = profile
	})
	return defaultProfile
}
