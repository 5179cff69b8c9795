package ethercat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// link is one raw ethernet round trip : send an EtherCAT payload, block
// (bounded) for the frame coming back around the ring.
type link interface {
	SendReceive(payload []byte) ([]byte, error)
	Close() error
}

// RawMaster is a minimal master for a single drive segment : broadcast
// discovery, AL state control, fixed process data mapping and one LRW
// exchange per cycle. It covers what the reference topology needs, it is
// not a general purpose master stack.
type RawMaster struct {
	link    link
	profile *Profile

	slaves   int
	image    *ProcessImage
	ioBuf    []byte
	index    uint8
	mbxCount uint8
	expected int
	closed   bool
}

func newRawMaster(l link, profile *Profile) *RawMaster {
	return &RawMaster{link: l, profile: profile, mbxCount: 1}
}

// roundTrip sends a single datagram frame and returns the processed
// datagram with its working counter.
func (m *RawMaster) roundTrip(d Datagram) (Datagram, error) {
	if m.closed {
		return Datagram{}, ErrClosed
	}
	m.index++
	d.Index = m.index
	payload, err := MarshalFrame([]Datagram{d})
	if err != nil {
		return Datagram{}, err
	}
	reply, err := m.link.SendReceive(payload)
	if err != nil {
		return Datagram{}, err
	}
	datagrams, err := UnmarshalFrame(reply)
	if err != nil {
		return Datagram{}, err
	}
	if datagrams[0].Index != d.Index {
		return Datagram{}, fmt.Errorf("datagram index mismatch, sent %v got %v", d.Index, datagrams[0].Index)
	}
	return datagrams[0], nil
}

func (m *RawMaster) Init() error {
	// One broadcast read to prove the link carries EtherCAT traffic.
	// The working counter does not matter yet.
	_, err := m.roundTrip(Datagram{Command: CmdBRD, Address: positionAddress(0, regType), Data: make([]byte, 2)})
	if err != nil {
		return fmt.Errorf("link check failed : %w", err)
	}
	return nil
}

func (m *RawMaster) ConfigInit() (int, error) {
	d, err := m.roundTrip(Datagram{Command: CmdBRD, Address: positionAddress(0, regType), Data: make([]byte, 2)})
	if err != nil {
		return 0, err
	}
	m.slaves = int(d.WorkingCounter)
	if m.slaves == 0 {
		return 0, ErrNoSlaves
	}
	log.Infof("[MASTER] found %v slave(s)", m.slaves)

	for i := 0; i < m.slaves; i++ {
		station := baseStationAddress + uint16(i)
		addr := make([]byte, 2)
		binary.LittleEndian.PutUint16(addr, station)
		_, err = m.roundTrip(Datagram{Command: CmdAPWR, Address: positionAddress(uint16(i), regStationAddress), Data: addr})
		if err != nil {
			return 0, fmt.Errorf("assigning station address to slave %v : %w", i, err)
		}
		// Mailbox sync managers, needed before PRE-OP is reachable
		err = m.configSM(station, regSM0, mailboxOutAddress, mailboxSize, smControlMailboxWrite)
		if err != nil {
			return 0, err
		}
		err = m.configSM(station, regSM1, mailboxInAddress, mailboxSize, smControlMailboxRead)
		if err != nil {
			return 0, err
		}
	}
	err = m.RequestState(StatePreOp)
	if err != nil {
		return 0, err
	}
	err = m.waitState(StatePreOp, DefaultStateTimeout)
	if err != nil {
		return 0, err
	}
	return m.slaves, nil
}

// configSM programs one sync manager of a slave.
func (m *RawMaster) configSM(station uint16, reg uint16, physical uint16, length uint16, control byte) error {
	sm := make([]byte, 8)
	binary.LittleEndian.PutUint16(sm[0:2], physical)
	binary.LittleEndian.PutUint16(sm[2:4], length)
	sm[4] = control
	sm[5] = 0    // status, read only
	sm[6] = 0x01 // activate
	d, err := m.roundTrip(Datagram{Command: CmdFPWR, Address: stationAddress(station, reg), Data: sm})
	if err != nil {
		return err
	}
	if d.WorkingCounter == 0 {
		return fmt.Errorf("slave x%04X did not accept SM config at x%04X", station, reg)
	}
	return nil
}

func (m *RawMaster) ConfigDC(period time.Duration) error {
	// Program SYNC0 on the reference slave, first pulse well in the
	// future relative to its local clock
	station := baseStationAddress
	d, err := m.roundTrip(Datagram{Command: CmdFPRD, Address: stationAddress(station, regDCSystemTime), Data: make([]byte, 8)})
	if err != nil {
		return err
	}
	systemTime := binary.LittleEndian.Uint64(d.Data)

	cycle := make([]byte, 4)
	binary.LittleEndian.PutUint32(cycle, uint32(period.Nanoseconds()))
	_, err = m.roundTrip(Datagram{Command: CmdFPWR, Address: stationAddress(station, regDCCycleTime0), Data: cycle})
	if err != nil {
		return err
	}
	start := make([]byte, 8)
	binary.LittleEndian.PutUint64(start, systemTime+uint64(100*time.Millisecond.Nanoseconds()))
	_, err = m.roundTrip(Datagram{Command: CmdFPWR, Address: stationAddress(station, regDCStartTime0), Data: start})
	if err != nil {
		return err
	}
	// Cyclic generation + SYNC0
	_, err = m.roundTrip(Datagram{Command: CmdFPWR, Address: stationAddress(station, regDCSyncActive), Data: []byte{0x03}})
	if err != nil {
		return err
	}
	log.Infof("[MASTER] DC SYNC0 active, cycle %v", period)
	return nil
}

func (m *RawMaster) MapProcessData() (*ProcessImage, error) {
	for i := 0; i < m.slaves; i++ {
		station := baseStationAddress + uint16(i)
		err := m.configSM(station, regSM2, outputsAddress, OutputsSize, smControlOutputs)
		if err != nil {
			return nil, err
		}
		err = m.configSM(station, regSM3, inputsAddress, InputsSize, smControlInputs)
		if err != nil {
			return nil, err
		}
		logicalBase := uint32(i) * uint32(OutputsSize+InputsSize)
		err = m.configFMMU(station, regFMMU0, logicalBase, OutputsSize, outputsAddress, fmmuTypeWrite)
		if err != nil {
			return nil, err
		}
		err = m.configFMMU(station, regFMMU1, logicalBase+OutputsSize, InputsSize, inputsAddress, fmmuTypeRead)
		if err != nil {
			return nil, err
		}
	}
	m.image = &ProcessImage{}
	m.ioBuf = make([]byte, m.slaves*(OutputsSize+InputsSize))
	m.expected = expectedWorkingCounter(m.slaves, m.slaves)
	log.Infof("[MASTER] process data mapped, %v bytes logical image, expected wkc %v", len(m.ioBuf), m.expected)
	return m.image, nil
}

// configFMMU programs one logical to physical mapping unit.
func (m *RawMaster) configFMMU(station uint16, reg uint16, logical uint32, length uint16, physical uint16, access byte) error {
	fmmu := make([]byte, 16)
	binary.LittleEndian.PutUint32(fmmu[0:4], logical)
	binary.LittleEndian.PutUint16(fmmu[4:6], length)
	fmmu[6] = 0 // logical start bit
	fmmu[7] = 7 // logical end bit
	binary.LittleEndian.PutUint16(fmmu[8:10], physical)
	fmmu[10] = 0 // physical start bit
	fmmu[11] = access
	fmmu[12] = 0x01 // activate
	d, err := m.roundTrip(Datagram{Command: CmdFPWR, Address: stationAddress(station, reg), Data: fmmu})
	if err != nil {
		return err
	}
	if d.WorkingCounter == 0 {
		return fmt.Errorf("slave x%04X did not accept FMMU config at x%04X", station, reg)
	}
	return nil
}

func (m *RawMaster) RequestState(state ALState) error {
	request := make([]byte, 2)
	binary.LittleEndian.PutUint16(request, uint16(state)|alControlAckBit)
	_, err := m.roundTrip(Datagram{Command: CmdBWR, Address: positionAddress(0, regALControl), Data: request})
	return err
}

// waitState polls the AL status until the state is reached or the
// timeout expires. Used internally for transitions that do not need
// process data flowing.
func (m *RawMaster) waitState(state ALState, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		current, err := m.State()
		if err == nil && current == state {
			log.Infof("[MASTER] all slaves reached %v", state)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w : requested %v, last seen %v", ErrStateTimeout, state, current)
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *RawMaster) State() (ALState, error) {
	d, err := m.roundTrip(Datagram{Command: CmdBRD, Address: positionAddress(0, regALStatus), Data: make([]byte, 2)})
	if err != nil {
		return StateNone, err
	}
	if d.WorkingCounter == 0 {
		return StateNone, ErrNoSlaves
	}
	status := binary.LittleEndian.Uint16(d.Data)
	if status&alStatusErrorBit != 0 {
		code, err := m.roundTrip(Datagram{Command: CmdBRD, Address: positionAddress(0, regALStatusCode), Data: make([]byte, 2)})
		if err == nil {
			log.Warnf("[MASTER] AL status error indicated, code x%04X", binary.LittleEndian.Uint16(code.Data))
		}
	}
	return ALState(status & 0x0F), nil
}

func (m *RawMaster) SDOWrite(slave uint16, index uint16, subindex uint8, value []byte) error {
	station := baseStationAddress + slave
	request, err := sdoDownloadRequest(station, index, subindex, value, m.mbxCount)
	if err != nil {
		return err
	}
	m.mbxCount = m.mbxCount%7 + 1
	// The write must cover the whole mailbox for the sync manager to
	// latch it
	out := make([]byte, mailboxSize)
	copy(out, request)
	d, err := m.roundTrip(Datagram{Command: CmdFPWR, Address: stationAddress(station, mailboxOutAddress), Data: out})
	if err != nil {
		return err
	}
	if d.WorkingCounter == 0 {
		return fmt.Errorf("slave x%04X refused mailbox write", station)
	}
	log.Debugf("[SDO] download %v (x%04X:%02X), %v byte(s)", m.profile.ObjectName(index, subindex), index, subindex, len(value))

	for attempt := 0; attempt < DefaultMailboxAttempts; attempt++ {
		d, err = m.roundTrip(Datagram{Command: CmdFPRD, Address: stationAddress(station, mailboxInAddress), Data: make([]byte, mailboxSize)})
		if err != nil {
			return err
		}
		if d.WorkingCounter == 0 {
			// Reply not in the mailbox yet
			time.Sleep(time.Millisecond)
			continue
		}
		return parseSDOResponse(d.Data, index, subindex)
	}
	return ErrMailboxTimeout
}

func (m *RawMaster) Exchange() (int, error) {
	if m.image == nil {
		return 0, ErrNotMapped
	}
	err := m.image.Out.MarshalTo(m.ioBuf[:OutputsSize])
	if err != nil {
		return 0, err
	}
	d, err := m.roundTrip(Datagram{Command: CmdLRW, Address: 0, Data: m.ioBuf})
	if err != nil {
		if errors.Is(err, ErrExchangeTimeout) {
			return 0, nil
		}
		return 0, err
	}
	copy(m.ioBuf, d.Data)
	err = m.image.In.UnmarshalFrom(m.ioBuf[OutputsSize : OutputsSize+InputsSize])
	if err != nil {
		return 0, err
	}
	return int(d.WorkingCounter), nil
}

func (m *RawMaster) ExpectedWkc() int {
	return m.expected
}

func (m *RawMaster) Close() error {
	if m.closed {
		return nil
	}
	// Leave the slaves in a defined state before releasing the link
	err := m.RequestState(StateInit)
	if err == nil {
		err = m.waitState(StateInit, time.Second)
	}
	if err != nil {
		log.Warnf("[MASTER] could not return slaves to INIT : %v", err)
	}
	m.closed = true
	return m.link.Close()
}
