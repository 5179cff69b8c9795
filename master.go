package ethercat

import (
	"time"
)

// Master is the bus collaborator surface the cyclic engine consumes.
// Implementations own the frame buffer : MapProcessData allocates the
// process image once and Exchange overwrites it in place every cycle.
type Master interface {
	// Init verifies the link is usable. Must be called first.
	Init() error
	// ConfigInit discovers the slaves on the segment, assigns station
	// addresses and returns the slave count. Zero slaves is an error.
	ConfigInit() (int, error)
	// ConfigDC programs the distributed clock sync period. The period
	// must equal the cyclic exchange period or the phases drift apart.
	ConfigDC(period time.Duration) error
	// MapProcessData programs the process data mapping and returns the
	// shared image. Valid after ConfigInit.
	MapProcessData() (*ProcessImage, error)
	// RequestState asks all slaves to transition to the given AL state.
	// It does not wait, callers poll State with their own bound.
	RequestState(state ALState) error
	// State reads back the current AL state of the segment.
	State() (ALState, error)
	// SDOWrite performs one blocking configuration object download.
	SDOWrite(slave uint16, index uint16, subindex uint8, value []byte) error
	// Exchange transmits the output image, blocks (bounded) for the
	// input image and returns the working counter of the round trip.
	Exchange() (int, error)
	// ExpectedWkc is the working counter a healthy exchange returns,
	// computed once from the topology after mapping.
	ExpectedWkc() int
	// Close releases the bus. Slaves are requested back to INIT.
	Close() error
}

// expectedWorkingCounter follows the usual master stack accounting :
// every output segment is read and written (counts twice), every input
// segment counts once.
func expectedWorkingCounter(outputs int, inputs int) int {
	return outputs*2 + inputs
}

// NewMaster opens a master for the named network interface. The name
// "virtual" selects the in-process simulated drive, anything else the
// raw ethernet transport.
func NewMaster(ifname string) (Master, error) {
	if ifname == "virtual" {
		return NewVirtualMaster(DefaultProfile()), nil
	}
	return openRawMaster(ifname)
}
