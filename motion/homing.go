package motion

import (
	"errors"

	"plotter/config"
	"plotter/core"
)

// Homing failure modes. Each maps to a distinct operator action, so they
// are distinct sentinel values rather than one generic failure.
var (
	// ErrStuckSwitch: the endstop read triggered before the search and a
	// clearing move did not release it. Wiring or a jammed switch.
	ErrStuckSwitch = errors.New("endstop triggered before homing and did not clear")

	// ErrStillTriggered: the backoff retract finished with the switch still
	// closed. The axis did not actually move, or the switch is stuck.
	ErrStillTriggered = errors.New("endstop still triggered after backoff")

	// ErrTimeout: a homing phase exceeded the configured time budget.
	ErrTimeout = errors.New("homing phase timed out")

	// ErrStall: the full search distance was travelled without a trigger.
	// The endstop never fired; likely disconnected.
	ErrStall = errors.New("endstop not reached within search distance")
)

// Homing runs the multi-phase homing sequence and tracks which axes hold a
// valid reference. Phases per axis: clear a pre-triggered switch, fast
// approach until trigger, back off, slow approach for the precise edge,
// then zero the step counter at the switch.
type Homing struct {
	cfg      *config.Machine
	engine   *Engine
	endstops *Endstops
	kin      Kinematics

	homed  [config.NumAxes]bool
	active bool
}

func NewHoming(cfg *config.Machine, engine *Engine, endstops *Endstops) *Homing {
	return &Homing{
		cfg:      cfg,
		engine:   engine,
		endstops: endstops,
		kin:      NewKinematics(cfg),
	}
}

// Homed reports whether the axis holds a valid reference.
func (h *Homing) Homed(a config.Axis) bool {
	return h.homed[a]
}

// AllHomed reports whether every axis holds a valid reference.
func (h *Homing) AllHomed() bool {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		if !h.homed[a] {
			return false
		}
	}
	return true
}

// Invalidate clears the reference of every axis (motors disabled, position
// possibly moved by hand).
func (h *Homing) Invalidate() {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		h.homed[a] = false
	}
}

// Active reports whether a homing sequence is currently running, for the
// status display.
func (h *Homing) Active() bool {
	return h.active
}

// HomeAxis homes one axis. On success the step counter reads zero at the
// switch trip point (plus the clearance height on Z) and the axis is marked
// homed. On failure the axis is marked unhomed and its step counter is
// reset to zero where it stopped, so a retry searches the full range again.
func (h *Homing) HomeAxis(a config.Axis) error {
	h.active = true
	defer func() { h.active = false }()

	h.homed[a] = false
	h.engine.EnableSteppers()
	err := h.sequence(a)
	if err != nil {
		h.engine.StopAxisImmediate(a)
		h.engine.ZeroAxis(a)
		h.engine.RestoreLimits(a)
		return err
	}

	h.homed[a] = true
	h.engine.RestoreLimits(a)

	if a == config.Z {
		// Lift the pen off the sensor so the next XY move cannot drag it.
		h.engine.MoveAxisTo(a, h.kin.AxisToSteps(a, h.cfg.Homing.ZClearance))
		h.runAxisToTarget(a)
	}
	return nil
}

// HomeAll homes every axis in the fixed order Z, X, Y. Z first lifts the
// pen before the carriage starts hunting for switches. All axes are
// attempted even after a failure so one report covers the whole machine.
// When everything succeeds the carriage parks at the home corner.
func (h *Homing) HomeAll() (errs [config.NumAxes]error, ok bool) {
	order := [config.NumAxes]config.Axis{config.Z, config.X, config.Y}
	ok = true
	for _, a := range order {
		if err := h.HomeAxis(a); err != nil {
			errs[a] = err
			ok = false
		}
	}
	if !ok {
		return errs, false
	}

	h.active = true
	defer func() { h.active = false }()
	h.engine.MoveTo([config.NumAxes]int64{
		config.Z: h.kin.AxisToSteps(config.Z, h.cfg.Homing.ZClearance),
	})
	h.engine.RunBlocking()
	return errs, true
}

func (h *Homing) sequence(a config.Axis) error {
	hc := h.cfg.Homing
	ax := h.cfg.Axes[a]

	// Rates come from shared homing config but may never exceed the axis's
	// own ceiling (the Z screw is far slower than the belts).
	fast := minf(hc.FastRate, ax.MaxVelocity)
	slow := minf(hc.SlowRate, ax.MaxVelocity)
	backoffSteps := h.kin.AxisToSteps(a, hc.BackoffMM)

	// Phase 0: a switch already closed blinds the edge search. The entry
	// state is only trustworthy after a settle window; a single poll can
	// return a stale committed level and skip the clearing move. Move away
	// up to twice the backoff distance; if it stays closed it is not a
	// position problem.
	h.settle(a, 50)
	if h.endstops.Triggered(a) {
		if err := h.moveAway(a, fast, 2*backoffSteps); err != nil {
			return err
		}
		h.settle(a, 50)
		if h.endstops.Triggered(a) {
			return ErrStuckSwitch
		}
	}

	// Phase 1: fast approach. Twice the travel range bounds the search so
	// a dead switch cannot drive the axis forever.
	searchSteps := 2 * h.kin.AxisToSteps(a, ax.MaxPosition)
	if err := h.moveUntilTriggered(a, fast, searchSteps); err != nil {
		return err
	}

	// Phase 2: retract off the switch to approach the edge fresh.
	if err := h.moveAway(a, fast, backoffSteps); err != nil {
		return err
	}
	h.settle(a, 50)
	if h.endstops.Triggered(a) {
		return ErrStillTriggered
	}

	// Phase 3: slow approach for a repeatable trip point. Bounded by a few
	// backoff distances; the switch is known to be just behind us.
	if err := h.moveUntilTriggered(a, slow, 4*backoffSteps); err != nil {
		return err
	}

	// Phase 4: this physical position is the axis reference.
	h.engine.ZeroAxis(a)
	return nil
}

// moveUntilTriggered drives the axis toward its home side until the
// debounced endstop fires, then halts immediately. maxSteps bounds the
// search; running out of it means the switch never fired.
func (h *Homing) moveUntilTriggered(a config.Axis, rate float64, maxSteps int64) error {
	h.applyHomingLimits(a, rate)
	h.engine.MoveAxisBy(a, int64(h.cfg.Axes[a].HomeDir)*maxSteps)

	start := core.Millis()
	timeout := h.cfg.Homing.TimeoutS * 1000
	for !h.endstops.Triggered(a) {
		h.engine.Watchdog().Reset()
		if core.Millis()-start > timeout {
			h.engine.StopAxisImmediate(a)
			return ErrTimeout
		}
		if !h.engine.RunAxis(a) {
			return ErrStall
		}
		h.engine.RefreshDisplay()
	}
	h.engine.StopAxisImmediate(a)
	return nil
}

// moveAway retracts the axis from its home side by the given distance.
func (h *Homing) moveAway(a config.Axis, rate float64, steps int64) error {
	h.applyHomingLimits(a, rate)
	h.engine.MoveAxisBy(a, int64(-h.cfg.Axes[a].HomeDir)*steps)

	start := core.Millis()
	timeout := h.cfg.Homing.TimeoutS * 1000
	for h.engine.RunAxis(a) {
		h.engine.Watchdog().Reset()
		if core.Millis()-start > timeout {
			h.engine.StopAxisImmediate(a)
			return ErrTimeout
		}
		h.engine.RefreshDisplay()
	}
	return nil
}

// runAxisToTarget drives a plain single-axis move (no endstop involvement)
// to completion.
func (h *Homing) runAxisToTarget(a config.Axis) {
	for h.engine.RunAxis(a) {
		h.engine.Watchdog().Reset()
		h.engine.RefreshDisplay()
	}
}

// applyHomingLimits caps the axis at the homing rate and softens the
// acceleration so the immediate stop at the trip point loses fewer steps.
func (h *Homing) applyHomingLimits(a config.Axis, rate float64) {
	ax := h.cfg.Axes[a]
	h.engine.SetMaxSpeed(a, rate*ax.StepsPerMM)
	h.engine.SetAcceleration(a, ax.MaxAccel*ax.StepsPerMM*h.cfg.Homing.AccelFactor)
}

// settle polls the endstop for the given milliseconds so the debouncer can
// commit the post-move level before it is judged.
func (h *Homing) settle(a config.Axis, ms uint32) {
	start := core.Millis()
	for core.Millis()-start < ms {
		h.engine.Watchdog().Reset()
		h.endstops.Triggered(a)
		core.DelayMicros(1000)
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
