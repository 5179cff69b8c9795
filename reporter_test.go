package ethercat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (s *recordingSink) record(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func (s *recordingSink) cycles() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cycles := []uint64{}
	for _, snap := range s.snapshots {
		cycles = append(cycles, snap.Cycle)
	}
	return cycles
}

func TestReporterRateLimit(t *testing.T) {
	sink := &recordingSink{}
	r := newReporter(10, UnitsPerRevolution, sink.record)
	for cycle := uint64(1); cycle <= 100; cycle++ {
		r.Observe(Snapshot{Cycle: cycle})
		// Keep the queue from filling, timing is not under test here
		time.Sleep(100 * time.Microsecond)
	}
	r.Close()
	assert.Equal(t, []uint64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, sink.cycles())
	assert.Equal(t, uint64(0), r.Dropped())
}

func TestReporterMismatchAlwaysReported(t *testing.T) {
	sink := &recordingSink{}
	r := newReporter(500, UnitsPerRevolution, sink.record)
	r.Observe(Snapshot{Cycle: 7, WkcMismatch: true, Wkc: 1, ExpectedWkc: 3})
	r.Close()
	assert.Equal(t, []uint64{7}, sink.cycles())
}

func TestReporterNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	blockingSink := func(Snapshot) {
		once.Do(func() { close(started) })
		<-release
	}
	r := newReporter(1, UnitsPerRevolution, blockingSink)
	// First snapshot parks the sink
	r.Observe(Snapshot{Cycle: 1})
	<-started

	begin := time.Now()
	for cycle := uint64(2); cycle <= 30; cycle++ {
		r.Observe(Snapshot{Cycle: cycle})
	}
	// Publishing must return immediately even with the sink stuck
	assert.Less(t, time.Since(begin), 50*time.Millisecond)
	assert.Greater(t, r.Dropped(), uint64(0))

	close(release)
	r.Close()
}
