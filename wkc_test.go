package ethercat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWkcSingleMismatchTolerated(t *testing.T) {
	v := NewWkcValidator(3)
	for i := 0; i < 9; i++ {
		assert.True(t, v.Check(3))
		assert.False(t, v.Mismatched())
	}
	// One isolated mismatch is surfaced but does not escalate
	assert.True(t, v.Check(1))
	assert.True(t, v.Mismatched())
	assert.False(t, v.Faulted())

	assert.True(t, v.Check(3))
	assert.False(t, v.Mismatched())
	assert.False(t, v.Faulted())
	assert.Equal(t, uint64(1), v.TotalMismatches())
}

func TestWkcSustainedMismatchEscalates(t *testing.T) {
	v := NewWkcValidator(3)
	for i := 0; i < DefaultWkcThreshold-1; i++ {
		assert.True(t, v.Check(0), "mismatch %v still below threshold", i+1)
	}
	assert.False(t, v.Check(0))
	assert.True(t, v.Faulted())
	assert.Equal(t, 1, v.FaultedFor())

	// Every further mismatch keeps it faulted
	assert.False(t, v.Check(0))
	assert.Equal(t, 2, v.FaultedFor())
}

func TestWkcRecovery(t *testing.T) {
	v := NewWkcValidator(3)
	for i := 0; i < DefaultWkcThreshold+5; i++ {
		v.Check(0)
	}
	assert.True(t, v.Faulted())

	// Counter coming back clears the fault condition
	assert.True(t, v.Check(3))
	assert.False(t, v.Faulted())
	assert.Equal(t, 0, v.FaultedFor())
}
