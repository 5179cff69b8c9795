// Package ethercat drives a CiA 402 servo drive over an EtherCAT process
// data channel in cyclic synchronous velocity mode.
// The Engine owns the fixed period exchange loop, the DriveController
// walks the drive through its power enable chain, and a Master
// implementation provides the underlying bus primitives. Two masters are
// available : a raw AF_PACKET master for real hardware (linux only) and a
// virtual master simulating a single drive, selected with the interface
// name "virtual".
package ethercat

import "time"

// EtherCAT EtherType used on the raw ethernet link
const etherTypeEtherCAT uint16 = 0x88A4

// AL (application layer) states of a slave, low nibble of register 0x0130
type ALState uint8

const (
	StateNone   ALState = 0x00
	StateInit   ALState = 0x01
	StatePreOp  ALState = 0x02
	StateBoot   ALState = 0x03
	StateSafeOp ALState = 0x04
	StateOp     ALState = 0x08
)

// Error indicator bit in the AL status register
const alStatusErrorBit uint16 = 0x10

// Acknowledge bit set in AL control to clear a slave error indication
const alControlAckBit uint16 = 0x10

func (s ALState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePreOp:
		return "PRE-OP"
	case StateBoot:
		return "BOOT"
	case StateSafeOp:
		return "SAFE-OP"
	case StateOp:
		return "OP"
	default:
		return "NONE"
	}
}

// Default timings, matching the reference device configuration
const (
	DefaultCyclePeriod     = 2 * time.Millisecond
	DefaultReceiveTimeout  = 2 * time.Millisecond
	DefaultStateTimeout    = 2 * time.Second
	DefaultReportInterval  = 500 // cycles, about one second at 2 ms
	DefaultShutdownTicks   = 50
	DefaultWkcThreshold    = 10  // consecutive mismatches before forced stop
	DefaultWkcFatalTicks   = 250 // forced stop ticks before the loop gives up
	DefaultOpPollAttempts  = 100 // exchange polls while waiting for OP
	DefaultMailboxAttempts = 50  // mailbox reply polls for one SDO access
)
