package ethercat

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Status words the reference drive actually reports for each power state
const (
	virtualStatusFault      uint16 = 0x1208
	virtualStatusDisabled   uint16 = 0x1250
	virtualStatusReady      uint16 = 0x1231
	virtualStatusSwitchedOn uint16 = 0x1233
	virtualStatusEnabled    uint16 = 0x1237
)

// VirtualMaster simulates a single CiA 402 drive behind the Master
// interface. Used for testing without hardware and selected on the
// command line with the interface name "virtual". The simulated drive
// walks the power enable chain in response to the commanded control
// word, tracks the velocity setpoint and integrates its position.
type VirtualMaster struct {
	mu      sync.Mutex
	profile *Profile

	image     *ProcessImage
	alState   ALState
	status    uint16
	position  float64
	velocity  int32
	period    time.Duration
	exchanges uint64
	closed    bool

	// Test hooks
	wkcScript  []int
	sdoFailure error
}

func NewVirtualMaster(profile *Profile) *VirtualMaster {
	return &VirtualMaster{
		profile: profile,
		alState: StateNone,
		status:  virtualStatusDisabled,
		period:  DefaultCyclePeriod,
	}
}

// InjectFault makes the drive report a fault until it sees a fault reset.
func (m *VirtualMaster) InjectFault() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = virtualStatusFault
}

// ScriptWkc queues working counter values returned by the next
// exchanges, after which the expected value is returned again.
func (m *VirtualMaster) ScriptWkc(values ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wkcScript = append(m.wkcScript, values...)
}

// FailSDO makes every configuration write fail with err.
func (m *VirtualMaster) FailSDO(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sdoFailure = err
}

func (m *VirtualMaster) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.alState = StateInit
	return nil
}

func (m *VirtualMaster) ConfigInit() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alState = StatePreOp
	return 1, nil
}

func (m *VirtualMaster) ConfigDC(period time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if period <= 0 {
		return ErrIllegalArgument
	}
	m.period = period
	return nil
}

func (m *VirtualMaster) MapProcessData() (*ProcessImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.image = &ProcessImage{}
	return m.image, nil
}

func (m *VirtualMaster) RequestState(state ALState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.alState = state
	log.Debugf("[VIRTUAL] AL state set to %v", state)
	return nil
}

func (m *VirtualMaster) State() (ALState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alState, nil
}

func (m *VirtualMaster) SDOWrite(slave uint16, index uint16, subindex uint8, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sdoFailure != nil {
		return m.sdoFailure
	}
	log.Debugf("[VIRTUAL] SDO download %v (x%04X:%02X) = %v", m.profile.ObjectName(index, subindex), index, subindex, value)
	return nil
}

func (m *VirtualMaster) Exchange() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.image == nil {
		return 0, ErrNotMapped
	}
	m.exchanges++
	m.step()

	wkc := m.expectedWkcLocked()
	if len(m.wkcScript) > 0 {
		wkc = m.wkcScript[0]
		m.wkcScript = m.wkcScript[1:]
	}
	return wkc, nil
}

// step advances the simulated drive by one cycle. Caller holds the lock.
func (m *VirtualMaster) step() {
	out := &m.image.Out
	switch {
	case m.status == virtualStatusFault:
		if out.ControlWord == ControlFaultReset {
			m.status = virtualStatusDisabled
		}
		m.velocity = 0
	case out.ControlWord == ControlShutdown:
		if m.status == virtualStatusDisabled || m.status == virtualStatusSwitchedOn || m.status == virtualStatusEnabled {
			m.status = virtualStatusReady
		}
		m.velocity = 0
	case out.ControlWord == ControlSwitchOn:
		if m.status == virtualStatusReady {
			m.status = virtualStatusSwitchedOn
		}
		m.velocity = 0
	case out.ControlWord == ControlEnableOperation:
		if m.status == virtualStatusSwitchedOn || m.status == virtualStatusEnabled {
			m.status = virtualStatusEnabled
		}
	case out.ControlWord == ControlDisableVoltage:
		m.status = virtualStatusDisabled
		m.velocity = 0
	}

	if m.status == virtualStatusEnabled && m.alState == StateOp {
		m.velocity = out.TargetVelocity
		m.position += float64(m.velocity) * m.period.Seconds()
	}

	in := &m.image.In
	in.StatusWord = m.status
	in.ActualPosition = int32(m.position)
	in.ActualVelocity = m.velocity
	in.ActualTorque = 0
	in.ErrorCode = 0
	in.ModeDisplay = out.Mode
}

func (m *VirtualMaster) expectedWkcLocked() int {
	return expectedWorkingCounter(1, 1)
}

func (m *VirtualMaster) ExpectedWkc() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expectedWkcLocked()
}

func (m *VirtualMaster) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.alState = StateInit
	return nil
}
