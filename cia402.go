package ethercat

import (
	log "github.com/sirupsen/logrus"
)

// CiA 402 control word commands
const (
	ControlDisableVoltage  uint16 = 0x0000
	ControlShutdown        uint16 = 0x0006
	ControlSwitchOn        uint16 = 0x0007
	ControlEnableOperation uint16 = 0x000F
	ControlFaultReset      uint16 = 0x0080
)

// PowerState is the drive's power enable state, recomputed every tick
// from the raw status word. The physical drive is the authority on its
// own state, nothing is tracked across ticks.
type PowerState uint8

const (
	PowerUnknown PowerState = iota
	PowerFault
	PowerSwitchOnDisabled
	PowerReadyToSwitchOn
	PowerSwitchedOn
	PowerOperationEnabled
)

var powerStateNames = map[PowerState]string{
	PowerUnknown:          "UNKNOWN",
	PowerFault:            "FAULT",
	PowerSwitchOnDisabled: "SWITCH ON DISABLED",
	PowerReadyToSwitchOn:  "READY TO SWITCH ON",
	PowerSwitchedOn:       "SWITCHED ON",
	PowerOperationEnabled: "OPERATION ENABLED",
}

func (s PowerState) String() string {
	name, ok := powerStateNames[s]
	if ok {
		return name
	}
	return "UNKNOWN"
}

// ClassifyStatus maps a raw status word to a power state using the
// standard bit masks. The reference drive reports operation enabled as
// either 0x1237 or 0x1637, both match the mask form. Anything outside
// the table (quick stop, fault reaction, not ready) is PowerUnknown and
// the controller holds its previous command.
func ClassifyStatus(status uint16) PowerState {
	switch {
	case status&0x004F == 0x0008:
		return PowerFault
	case status&0x004F == 0x0040:
		return PowerSwitchOnDisabled
	case status&0x006F == 0x0021:
		return PowerReadyToSwitchOn
	case status&0x006F == 0x0023:
		return PowerSwitchedOn
	case status&0x006F == 0x0027:
		return PowerOperationEnabled
	default:
		return PowerUnknown
	}
}

// NextCommand is the transition table. Pure function of the observed
// state, the previous control word, the requested target velocity and
// the enabled latch. Velocity is only commanded while operation is
// enabled, every other state gets a zero setpoint.
func NextCommand(state PowerState, prevControl uint16, target int32, enabled bool) (control uint16, velocity int32, nowEnabled bool) {
	switch state {
	case PowerFault:
		return ControlFaultReset, 0, enabled
	case PowerSwitchOnDisabled:
		return ControlShutdown, 0, enabled
	case PowerReadyToSwitchOn:
		return ControlSwitchOn, 0, enabled
	case PowerSwitchedOn:
		return ControlEnableOperation, 0, enabled
	case PowerOperationEnabled:
		return ControlEnableOperation, target, true
	default:
		return prevControl, 0, enabled
	}
}

// DriveController owns the per run latches of the state machine : the
// motor enabled flag, set once and never cleared, and the start position
// captured when the drive first reaches operation enabled.
type DriveController struct {
	Target    int32 // requested velocity, native units
	Mode      int8
	MaxTorque uint16

	enabled       bool
	startPosition int32
}

func NewDriveController(profile *Profile, targetRPM float64) *DriveController {
	return &DriveController{
		Target:    VelocityFromRPM(targetRPM, profile.UnitsPerRev),
		Mode:      profile.Mode,
		MaxTorque: profile.MaxTorque,
	}
}

// Update runs one tick of the state machine against the process image.
// It reads the input image and rewrites the output image, and is the only
// writer of the output image besides the shutdown sequence.
func (dc *DriveController) Update(pi *ProcessImage) PowerState {
	state := ClassifyStatus(pi.In.StatusWord)
	control, velocity, enabled := NextCommand(state, pi.Out.ControlWord, dc.Target, dc.enabled)
	if enabled && !dc.enabled {
		dc.enabled = true
		dc.startPosition = pi.In.ActualPosition
		log.Infof("[CIA402] drive enabled | status x%04X | start position %v", pi.In.StatusWord, dc.startPosition)
	}
	pi.Out.ControlWord = control
	pi.Out.TargetVelocity = velocity
	// Re-asserted every tick, the drive may silently revert them
	pi.Out.Mode = dc.Mode
	pi.Out.MaxTorque = dc.MaxTorque
	return state
}

// Enabled reports whether operation enabled has been observed this run.
func (dc *DriveController) Enabled() bool {
	return dc.enabled
}

// StartPosition is the actual position at the first enabled tick.
func (dc *DriveController) StartPosition() int32 {
	return dc.startPosition
}
