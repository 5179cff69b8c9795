package ethercat

import (
	log "github.com/sirupsen/logrus"
)

// WkcValidator compares the working counter of every exchange against
// the value expected from the bus topology. A single mismatch is
// tolerated (momentary bus noise), a sustained run of mismatches latches
// a communication fault until the counter recovers.
type WkcValidator struct {
	Expected  int
	Threshold int

	consecutive int
	faultedFor  int
	total       uint64
	lastWkc     int
}

func NewWkcValidator(expected int) *WkcValidator {
	return &WkcValidator{Expected: expected, Threshold: DefaultWkcThreshold}
}

// Check records the working counter of one exchange and returns true
// while communication is considered healthy.
func (v *WkcValidator) Check(wkc int) bool {
	v.lastWkc = wkc
	if wkc == v.Expected {
		if v.faultedFor > 0 {
			log.Infof("[WKC] working counter recovered after %v faulted cycles", v.faultedFor)
		}
		v.consecutive = 0
		v.faultedFor = 0
		return true
	}
	v.total++
	v.consecutive++
	if v.consecutive == v.Threshold {
		log.Errorf("[WKC] %v consecutive mismatches (expected %v, got %v), forcing safe stop", v.consecutive, v.Expected, wkc)
	}
	if v.consecutive >= v.Threshold {
		v.faultedFor++
		return false
	}
	return true
}

// Faulted reports whether the mismatch run has crossed the threshold.
func (v *WkcValidator) Faulted() bool {
	return v.faultedFor > 0
}

// FaultedFor is the number of ticks spent in the faulted condition, used
// by the engine to decide when the loss is fatal.
func (v *WkcValidator) FaultedFor() int {
	return v.faultedFor
}

// Mismatched reports whether the last checked counter was off, faulted
// or not. Surfaced to the reporter.
func (v *WkcValidator) Mismatched() bool {
	return v.consecutive > 0
}

// Last returns the last working counter seen.
func (v *WkcValidator) Last() int {
	return v.lastWkc
}

// TotalMismatches counts every mismatch of the run.
func (v *WkcValidator) TotalMismatches() uint64 {
	return v.total
}
