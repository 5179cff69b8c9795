package ethercat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualMasterEnableChain(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	image, err := master.MapProcessData()
	require.Nil(t, err)
	require.Nil(t, master.RequestState(StateOp))

	// Walk the drive through the chain the way the controller would
	for _, control := range []uint16{ControlShutdown, ControlSwitchOn, ControlEnableOperation} {
		image.Out.ControlWord = control
		_, err := master.Exchange()
		require.Nil(t, err)
	}
	assert.Equal(t, virtualStatusEnabled, image.In.StatusWord)

	// With operation enabled the drive follows the setpoint and moves
	image.Out.TargetVelocity = 21845
	for i := 0; i < 10; i++ {
		_, err := master.Exchange()
		require.Nil(t, err)
	}
	assert.Equal(t, int32(21845), image.In.ActualVelocity)
	assert.Greater(t, image.In.ActualPosition, int32(0))
}

func TestVirtualMasterFaultRecovery(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	image, err := master.MapProcessData()
	require.Nil(t, err)

	master.InjectFault()
	_, err = master.Exchange()
	require.Nil(t, err)
	assert.Equal(t, virtualStatusFault, image.In.StatusWord)
	assert.Equal(t, PowerFault, ClassifyStatus(image.In.StatusWord))

	// Anything but a fault reset is ignored
	image.Out.ControlWord = ControlEnableOperation
	_, err = master.Exchange()
	require.Nil(t, err)
	assert.Equal(t, virtualStatusFault, image.In.StatusWord)

	image.Out.ControlWord = ControlFaultReset
	_, err = master.Exchange()
	require.Nil(t, err)
	assert.Equal(t, virtualStatusDisabled, image.In.StatusWord)
}

func TestVirtualMasterScriptedWkc(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	_, err := master.MapProcessData()
	require.Nil(t, err)

	master.ScriptWkc(0, 1)
	wkc, err := master.Exchange()
	require.Nil(t, err)
	assert.Equal(t, 0, wkc)
	wkc, err = master.Exchange()
	require.Nil(t, err)
	assert.Equal(t, 1, wkc)
	// Script exhausted, back to the topology value
	wkc, err = master.Exchange()
	require.Nil(t, err)
	assert.Equal(t, master.ExpectedWkc(), wkc)
}

func TestVirtualMasterClosed(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	_, err := master.MapProcessData()
	require.Nil(t, err)
	require.Nil(t, master.Close())

	_, err = master.Exchange()
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, master.RequestState(StateOp))
	// Closing twice is fine
	assert.Nil(t, master.Close())
}

func TestVirtualMasterExchangeBeforeMapping(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	_, err := master.Exchange()
	assert.Equal(t, ErrNotMapped, err)
}

// Full session against the simulated drive : setup, spin, cancel, stop.
func TestEngineAgainstVirtualMaster(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	engine, err := NewEngine(master, DefaultProfile(), Config{
		Period:        time.Millisecond,
		TargetRPM:     10,
		ReportEvery:   10,
		ShutdownTicks: 5,
	})
	require.Nil(t, err)
	require.Nil(t, engine.Setup())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.Nil(t, engine.Run(ctx))

	assert.True(t, engine.Enabled())
	assert.Greater(t, engine.Cycles(), uint64(10))
	// The shutdown sequence left the drive stopped
	assert.Equal(t, ControlDisableVoltage, engine.image.Out.ControlWord)
	assert.Equal(t, int32(0), engine.image.Out.TargetVelocity)
	assert.Equal(t, int32(0), engine.image.In.ActualVelocity)
}

func TestEngineSetupSurvivesSDOFailure(t *testing.T) {
	master := NewVirtualMaster(DefaultProfile())
	master.FailSDO(errors.New("mailbox gone"))
	engine, err := NewEngine(master, DefaultProfile(), Config{
		Period:    time.Millisecond,
		TargetRPM: 10,
	})
	require.Nil(t, err)
	// The interpolation period write is best effort
	assert.Nil(t, engine.Setup())
}
