package ethercat

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Snapshot is a copy of one cycle's observable state. The reporter only
// ever sees copies, never the live process image.
type Snapshot struct {
	Cycle          uint64
	StatusWord     uint16
	ControlWord    uint16
	ActualPosition int32
	StartPosition  int32
	ActualVelocity int32
	ErrorCode      uint16
	ModeDisplay    int8
	Wkc            int
	ExpectedWkc    int
	WkcMismatch    bool
}

// Reporter emits a human readable status line every Nth cycle, plus one
// line per working counter mismatch. Publishing never blocks : if the
// sink cannot keep up the snapshot is dropped, the control loop always
// goes first.
type Reporter struct {
	every       uint64
	unitsPerRev int32
	queue       chan Snapshot
	done        chan struct{}
	sink        func(Snapshot)
	dropped     atomic.Uint64
}

func NewReporter(every uint64, unitsPerRev int32) *Reporter {
	return newReporter(every, unitsPerRev, nil)
}

// newReporter allows swapping the log sink, tests use a recording one.
func newReporter(every uint64, unitsPerRev int32, sink func(Snapshot)) *Reporter {
	r := &Reporter{
		every:       every,
		unitsPerRev: unitsPerRev,
		queue:       make(chan Snapshot, 8),
		done:        make(chan struct{}),
	}
	if sink == nil {
		sink = r.logSnapshot
	}
	r.sink = sink
	go r.drain()
	return r
}

// Observe is called once per cycle and decides whether this cycle gets
// reported.
func (r *Reporter) Observe(s Snapshot) {
	if s.Cycle%r.every != 0 && !s.WkcMismatch {
		return
	}
	select {
	case r.queue <- s:
	default:
		r.dropped.Add(1)
	}
}

func (r *Reporter) drain() {
	defer close(r.done)
	for s := range r.queue {
		r.sink(s)
	}
}

func (r *Reporter) logSnapshot(s Snapshot) {
	if s.WkcMismatch {
		log.Warnf("[REPORTER] cycle %6d | wkc mismatch %v/%v", s.Cycle, s.Wkc, s.ExpectedWkc)
		if s.Cycle%r.every != 0 {
			return
		}
	}
	rpm := RPMFromVelocity(s.ActualVelocity, r.unitsPerRev)
	delta := s.ActualPosition - s.StartPosition
	log.Infof("[REPORTER] cycle %6d | status x%04X | control x%02X | pos %10d (%+d) | vel %7.2f rpm (%6d units) | mode %d | err x%04X | wkc %v/%v",
		s.Cycle, s.StatusWord, s.ControlWord, s.ActualPosition, delta, rpm, s.ActualVelocity, s.ModeDisplay, s.ErrorCode, s.Wkc, s.ExpectedWkc)
}

// Dropped counts snapshots discarded because the sink was too slow.
func (r *Reporter) Dropped() uint64 {
	return r.dropped.Load()
}

// Close flushes pending snapshots and stops the drain goroutine.
func (r *Reporter) Close() {
	close(r.queue)
	<-r.done
}
