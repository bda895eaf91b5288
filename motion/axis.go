// Package motion implements the coordinated multi-axis motion engine, the
// per-axis step generators, kinematics, endstop debouncing and the homing
// state machine for the plotter.
package motion

import (
	"math"

	"plotter/core"
)

const (
	// speedUpdatePeriodUS is the control cadence for velocity recalculation.
	speedUpdatePeriodUS = 5000

	// displayPeriodUS is how often long-running loops refresh the display.
	displayPeriodUS = 150000

	// speedFloorFraction and speedFloorMin prevent the step generator from
	// stalling at the bottom of the velocity ramp.
	speedFloorFraction = 0.05
	speedFloorMin      = 50.0 // steps/s
)

// Axis is the runtime state of one motor channel: authoritative step count,
// target, and current speed/acceleration limits. Owned by the Engine;
// callers go through the Engine's interface.
type Axis struct {
	port core.StepPort

	position int64 // current step count
	target   int64

	speed    float64 // commanded speed magnitude, steps/s
	maxSpeed float64 // steps/s
	accel    float64 // steps/s^2

	// accelerated-run state (single-axis moves)
	rampSpeed float64
	lastRamp  uint32 // micros

	lastStep   uint32 // micros of last issued step
	dirForward bool
	dirKnown   bool
}

func newAxis(port core.StepPort) *Axis {
	return &Axis{port: port}
}

// moveTo sets an absolute step target and arms the ramp.
func (a *Axis) moveTo(steps int64) {
	a.target = steps
	a.rampSpeed = 0
	now := core.Micros()
	a.lastRamp = now
	a.lastStep = now
}

// moveBy sets a relative step target.
func (a *Axis) moveBy(delta int64) {
	a.moveTo(a.position + delta)
}

// setSpeed sets the constant-speed magnitude used by runSpeedTick.
// A zero speed generates no steps.
func (a *Axis) setSpeed(v float64) {
	a.speed = v
}

// setPosition redefines the current step count without motion. Also clears
// the target and any residual speed, so it doubles as an immediate stop.
func (a *Axis) setPosition(steps int64) {
	a.position = steps
	a.target = steps
	a.speed = 0
	a.rampSpeed = 0
}

// stopImmediate halts the axis with no deceleration. The step count keeps
// its current value; the caller owns resynchronizing logical position.
func (a *Axis) stopImmediate() {
	a.setPosition(a.position)
}

// stop begins a decelerated stop: the target is pulled in to the distance
// the axis needs to ramp down from its present speed.
func (a *Axis) stop() {
	if a.position == a.target {
		return
	}
	v := a.rampSpeed
	if a.speed > v {
		v = a.speed
	}
	stopping := int64(v * v / (2 * a.accel))
	if a.target > a.position {
		a.target = a.position + stopping
	} else {
		a.target = a.position - stopping
	}
}

func (a *Axis) distanceToGo() int64 {
	return a.target - a.position
}

func (a *Axis) running() bool {
	return a.position != a.target
}

// runSpeedTick issues at most one step toward the target at the commanded
// constant speed. Returns false once the target is reached.
func (a *Axis) runSpeedTick() bool {
	if a.position == a.target {
		return false
	}
	interval, ok := stepInterval(a.speed)
	if !ok {
		return true
	}
	now := core.Micros()
	if now-a.lastStep < interval {
		return true
	}
	a.advanceStepClock(now, interval)
	a.stepToward()
	return a.position != a.target
}

// runTick issues at most one step toward the target with the axis's own
// trapezoidal ramp: accelerate at the configured rate, cruise at maxSpeed,
// decelerate so the axis lands on the target. Used for single-axis moves
// (homing, pen clearance) that need no cross-axis coordination.
func (a *Axis) runTick() bool {
	if a.position == a.target {
		a.rampSpeed = 0
		return false
	}

	now := core.Micros()
	if now-a.lastRamp >= speedUpdatePeriodUS {
		dt := float64(now-a.lastRamp) / 1e6
		a.lastRamp = now

		remaining := a.target - a.position
		if remaining < 0 {
			remaining = -remaining
		}
		v := a.rampSpeed + a.accel*dt
		if limit := math.Sqrt(2 * a.accel * float64(remaining)); v > limit {
			v = limit
		}
		if v > a.maxSpeed {
			v = a.maxSpeed
		}
		if v < speedFloorMin {
			v = speedFloorMin
		}
		a.rampSpeed = v
	}

	if interval, ok := stepInterval(a.rampSpeed); ok && now-a.lastStep >= interval {
		a.advanceStepClock(now, interval)
		a.stepToward()
	}
	return a.position != a.target
}

// stepInterval converts a speed in steps/s to a step period in micros.
// ok=false when the speed is zero or too low for the period to fit the
// 32-bit clock.
func stepInterval(v float64) (uint32, bool) {
	if v <= 0 {
		return 0, false
	}
	iv := 1e6 / v
	if iv >= float64(^uint32(0)) {
		return 0, false
	}
	return uint32(iv), true
}

// advanceStepClock moves the step schedule forward by one period, carrying
// the phase remainder so the long-run rate equals the commanded speed
// exactly. Coordinated moves rely on this: each axis rounding its period
// independently would let them drift apart. Lag beyond one period (the
// loop stalled in a display refresh or settle) is forgiven rather than
// replayed as a step burst.
func (a *Axis) advanceStepClock(now, interval uint32) {
	a.lastStep += interval
	if now-a.lastStep > interval {
		a.lastStep = now - interval
	}
}

// stepToward emits one hardware step in the direction of the target and
// updates the step count. Position and hardware never advance separately.
func (a *Axis) stepToward() {
	forward := a.target > a.position
	if !a.dirKnown || forward != a.dirForward {
		a.port.SetDirection(forward)
		a.dirForward = forward
		a.dirKnown = true
	}
	a.port.Step()
	if forward {
		a.position++
	} else {
		a.position--
	}
}
