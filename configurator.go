package ethercat

import (
	log "github.com/sirupsen/logrus"
)

// DriveConfigurator wraps the blocking configuration accesses a drive
// needs before cyclic operation starts. All of them go through the
// master's SDO primitive.
type DriveConfigurator struct {
	master  Master
	profile *Profile
	slave   uint16
}

func NewDriveConfigurator(master Master, profile *Profile, slave uint16) *DriveConfigurator {
	return &DriveConfigurator{master: master, profile: profile, slave: slave}
}

// SetInterpolationPeriod writes the interpolation time period the drive
// uses to interpolate between velocity setpoints. It should match the
// cycle period. Callers may treat a failure as non fatal, the drive then
// runs with its default.
func (c *DriveConfigurator) SetInterpolationPeriod(ms uint8) error {
	log.Infof("[CONFIGURATOR] writing %v (x%04X:01) = %v ms", c.profile.ObjectName(objInterpolationPeriod, 1), objInterpolationPeriod, ms)
	return c.master.SDOWrite(c.slave, objInterpolationPeriod, 1, []byte{ms})
}
