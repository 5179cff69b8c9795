package ethercat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Config holds the session parameters of one control run. Zero values
// are replaced with the reference defaults.
type Config struct {
	Period        time.Duration
	TargetRPM     float64
	ReportEvery   uint64
	ShutdownTicks int
	WkcFatalTicks int
	StateTimeout  time.Duration
}

func (c *Config) setDefaults() {
	if c.Period == 0 {
		c.Period = DefaultCyclePeriod
	}
	if c.ReportEvery == 0 {
		c.ReportEvery = DefaultReportInterval
	}
	if c.ShutdownTicks == 0 {
		c.ShutdownTicks = DefaultShutdownTicks
	}
	if c.WkcFatalTicks == 0 {
		c.WkcFatalTicks = DefaultWkcFatalTicks
	}
	if c.StateTimeout == 0 {
		c.StateTimeout = DefaultStateTimeout
	}
}

// Engine owns the cyclic exchange loop. It is the session object of a
// run : it holds the process image reference, the drive controller, the
// working counter validator and the reporter, and it is the only
// component that sequences them. One engine drives one run, it is not
// reusable.
type Engine struct {
	master    Master
	profile   *Profile
	config    Config
	drive     *DriveController
	validator *WkcValidator
	reporter  *Reporter
	image     *ProcessImage
	session   string
	cycles    uint64
}

func NewEngine(master Master, profile *Profile, config Config) (*Engine, error) {
	if master == nil || profile == nil {
		return nil, ErrIllegalArgument
	}
	config.setDefaults()
	return &Engine{
		master:  master,
		profile: profile,
		config:  config,
		drive:   NewDriveController(profile, config.TargetRPM),
		session: uuid.NewString(),
	}, nil
}

// Setup brings the bus to the operational state : discovery, distributed
// clock, process data mapping, interpolation period and the AL state
// chain. Any error here is fatal and happens before the first cyclic
// command is issued.
func (e *Engine) Setup() error {
	log.Infof("[ENGINE] session %v | target %v rpm (%v units)", e.session, e.config.TargetRPM, e.drive.Target)
	if err := e.master.Init(); err != nil {
		return fmt.Errorf("initializing master : %w", err)
	}
	slaves, err := e.master.ConfigInit()
	if err != nil {
		return fmt.Errorf("discovering slaves : %w", err)
	}
	log.Infof("[ENGINE] %v slave(s) configured", slaves)

	if err := e.master.ConfigDC(e.config.Period); err != nil {
		return fmt.Errorf("configuring distributed clock : %w", err)
	}
	e.image, err = e.master.MapProcessData()
	if err != nil {
		return fmt.Errorf("mapping process data : %w", err)
	}
	// Start from a known output image, constants asserted
	e.image.Out = Outputs{Mode: e.profile.Mode, MaxTorque: e.profile.MaxTorque}
	e.validator = NewWkcValidator(e.master.ExpectedWkc())
	e.reporter = NewReporter(e.config.ReportEvery, e.profile.UnitsPerRev)

	configurator := NewDriveConfigurator(e.master, e.profile, 0)
	if err := configurator.SetInterpolationPeriod(e.profile.InterpolationMs); err != nil {
		// Non fatal, the drive runs with its default
		log.Warnf("[ENGINE] could not set interpolation period : %v", err)
	}

	if err := e.waitForState(StateSafeOp, false); err != nil {
		return err
	}
	// Prime the slaves with one valid frame before requesting OP
	if _, err := e.master.Exchange(); err != nil {
		return fmt.Errorf("initial exchange : %w", err)
	}
	if err := e.waitForState(StateOp, true); err != nil {
		return err
	}
	log.Infof("[ENGINE] all slaves operational | expected wkc %v", e.master.ExpectedWkc())
	return nil
}

// waitForState requests an AL state and polls until it is reached.
// Reaching OP requires process data to keep flowing, so that wait
// exchanges on every poll.
func (e *Engine) waitForState(state ALState, withExchange bool) error {
	if err := e.master.RequestState(state); err != nil {
		return fmt.Errorf("requesting %v : %w", state, err)
	}
	deadline := time.Now().Add(e.config.StateTimeout)
	for attempt := 0; ; attempt++ {
		current, err := e.master.State()
		if err == nil && current == state {
			log.Infof("[ENGINE] reached %v", state)
			return nil
		}
		expired := time.Now().After(deadline)
		if withExchange {
			expired = attempt >= DefaultOpPollAttempts
		}
		if expired {
			return fmt.Errorf("%w : requested %v", ErrStateTimeout, state)
		}
		if withExchange {
			if _, err := e.master.Exchange(); err != nil {
				log.Debugf("[ENGINE] exchange while waiting for %v : %v", state, err)
			}
		}
		time.Sleep(e.config.Period)
	}
}

// Run executes the cyclic loop until the context is cancelled or a
// sustained communication fault makes the run hopeless. Every exit path
// goes through the shutdown sequence, the drive is always commanded to a
// stop before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if e.image == nil || e.validator == nil {
		return ErrNotMapped
	}
	defer e.shutdown()
	log.Infof("[ENGINE] cyclic loop started | period %v", e.config.Period)

	for {
		// Cancellation is polled once per tick, a request is honored at
		// the latest one period after it was made
		select {
		case <-ctx.Done():
			log.Infof("[ENGINE] cancellation received")
			return nil
		default:
		}

		start := time.Now()
		wkc, err := e.master.Exchange()
		if err != nil {
			if errors.Is(err, ErrClosed) || errors.Is(err, ErrNotMapped) {
				return err
			}
			// Counted against the working counter like any lost frame
			log.Debugf("[ENGINE] exchange failed : %v", err)
			wkc = 0
		}

		if e.validator.Check(wkc) {
			e.drive.Update(e.image)
		} else {
			// Communication fault : force a safe stop and suspend
			// velocity commands until the counter recovers
			e.image.Out.ControlWord = ControlDisableVoltage
			e.image.Out.TargetVelocity = 0
			e.image.Out.Mode = e.profile.Mode
			e.image.Out.MaxTorque = e.profile.MaxTorque
			if e.validator.FaultedFor() >= e.config.WkcFatalTicks {
				return ErrWorkingCounter
			}
		}

		e.cycles++
		e.reporter.Observe(e.snapshot(wkc))
		e.sleepRemainder(start)
	}
}

// snapshot copies the observable state of this cycle for the reporter.
func (e *Engine) snapshot(wkc int) Snapshot {
	return Snapshot{
		Cycle:          e.cycles,
		StatusWord:     e.image.In.StatusWord,
		ControlWord:    e.image.Out.ControlWord,
		ActualPosition: e.image.In.ActualPosition,
		StartPosition:  e.drive.StartPosition(),
		ActualVelocity: e.image.In.ActualVelocity,
		ErrorCode:      e.image.In.ErrorCode,
		ModeDisplay:    e.image.In.ModeDisplay,
		Wkc:            wkc,
		ExpectedWkc:    e.validator.Expected,
		WkcMismatch:    e.validator.Mismatched(),
	}
}

// shutdown commands the drive to a stop and keeps exchanging for a
// bounded number of ticks so the drive actually observes the command
// before the bus goes away. Runs on every loop exit.
func (e *Engine) shutdown() {
	log.Infof("[ENGINE] stopping drive")
	e.image.Out.ControlWord = ControlDisableVoltage
	e.image.Out.TargetVelocity = 0
	for i := 0; i < e.config.ShutdownTicks; i++ {
		start := time.Now()
		if _, err := e.master.Exchange(); err != nil {
			log.Debugf("[ENGINE] exchange during shutdown : %v", err)
		}
		e.sleepRemainder(start)
	}
	if e.reporter != nil {
		e.reporter.Close()
	}
	log.Infof("[ENGINE] drive stopped | %v cycles | %v wkc mismatches | session %v", e.cycles, e.validator.TotalMismatches(), e.session)
}

// sleepRemainder sleeps whatever is left of the fixed period. No drift
// compensation, the distributed clock owns the phase.
func (e *Engine) sleepRemainder(start time.Time) {
	elapsed := time.Since(start)
	if elapsed < e.config.Period {
		time.Sleep(e.config.Period - elapsed)
	}
}

// Cycles is the number of completed loop iterations.
func (e *Engine) Cycles() uint64 {
	return e.cycles
}

// Enabled reports whether the drive reached operation enabled this run.
func (e *Engine) Enabled() bool {
	return e.drive.Enabled()
}
