package motion

import (
	"math"

	"plotter/config"
	"plotter/core"
)

// Engine coordinates the three axes. It owns the authoritative step counts,
// plans trapezoidal velocity profiles on the dominant axis and scales the
// other axes so all arrive together. Moves execute to completion inside
// RunBlocking; the engine feeds the watchdog and the display while it runs.
type Engine struct {
	cfg  *config.Machine
	axes [config.NumAxes]*Axis
	wdt  core.Watchdog

	// Refresh is called from long-running motion loops roughly every 150 ms
	// so the UI stays alive without its own thread. May be nil.
	Refresh func()

	lastRefresh uint32 // micros
	enabled     bool
}

// NewEngine wires the step ports and applies the configured per-axis limits.
func NewEngine(cfg *config.Machine, ports [config.NumAxes]core.StepPort, wdt core.Watchdog) *Engine {
	e := &Engine{cfg: cfg, wdt: wdt}
	for a := config.Axis(0); a < config.NumAxes; a++ {
		e.axes[a] = newAxis(ports[a])
		e.RestoreLimits(a)
	}
	return e
}

// RestoreLimits resets one axis to its configured maximum speed and
// acceleration, undoing any temporary homing or per-move overrides.
func (e *Engine) RestoreLimits(a config.Axis) {
	ax := e.cfg.Axes[a]
	e.axes[a].maxSpeed = ax.MaxVelocity * ax.StepsPerMM
	e.axes[a].accel = ax.MaxAccel * ax.StepsPerMM
}

// SetMaxSpeed overrides one axis's speed ceiling in steps/s. Non-positive
// values are ignored so a degenerate scale can never freeze an axis.
func (e *Engine) SetMaxSpeed(a config.Axis, v float64) {
	if v > 0 {
		e.axes[a].maxSpeed = v
	}
}

// SetAcceleration overrides one axis's acceleration in steps/s^2.
func (e *Engine) SetAcceleration(a config.Axis, v float64) {
	if v > 0 {
		e.axes[a].accel = v
	}
}

// MoveTo sets absolute step targets for all three axes.
func (e *Engine) MoveTo(steps [config.NumAxes]int64) {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		e.axes[a].moveTo(steps[a])
	}
}

// MoveAxisTo sets an absolute step target on one axis.
func (e *Engine) MoveAxisTo(a config.Axis, steps int64) {
	e.axes[a].moveTo(steps)
}

// MoveAxisBy sets a relative step target on one axis.
func (e *Engine) MoveAxisBy(a config.Axis, delta int64) {
	e.axes[a].moveBy(delta)
}

// RunAxis advances one axis with its own ramp. Returns false once the axis
// has reached its target. Used by homing and single-axis service moves.
func (e *Engine) RunAxis(a config.Axis) bool {
	return e.axes[a].runTick()
}

// StopAxis begins a decelerated stop on one axis.
func (e *Engine) StopAxis(a config.Axis) {
	e.axes[a].stop()
}

// StopAxisImmediate halts one axis with no deceleration.
func (e *Engine) StopAxisImmediate(a config.Axis) {
	e.axes[a].stopImmediate()
}

// AxisRunning reports whether one axis still has distance to go.
func (e *Engine) AxisRunning(a config.Axis) bool {
	return e.axes[a].running()
}

// ZeroAxis redefines one axis's current physical position as step zero.
func (e *Engine) ZeroAxis(a config.Axis) {
	e.axes[a].setPosition(0)
}

// SetAxisPosition redefines one axis's step count without motion.
func (e *Engine) SetAxisPosition(a config.Axis, steps int64) {
	e.axes[a].setPosition(steps)
}

// SetPositions redefines all step counts without motion (G92, post-home sync).
func (e *Engine) SetPositions(steps [config.NumAxes]int64) {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		e.axes[a].setPosition(steps[a])
	}
}

// CurrentSteps returns the authoritative step counts.
func (e *Engine) CurrentSteps() [config.NumAxes]int64 {
	var s [config.NumAxes]int64
	for a := config.Axis(0); a < config.NumAxes; a++ {
		s[a] = e.axes[a].position
	}
	return s
}

// EnableSteppers powers all motor drivers.
func (e *Engine) EnableSteppers() {
	for _, ax := range e.axes {
		ax.port.Enable()
	}
	e.enabled = true
}

// DisableSteppers removes drive power. Step counts are kept; an axis moved
// by hand afterwards silently invalidates them, which is why homing state
// is cleared by the caller where that matters.
func (e *Engine) DisableSteppers() {
	for _, ax := range e.axes {
		ax.port.Disable()
	}
	e.enabled = false
}

// SteppersEnabled reports the driver power state.
func (e *Engine) SteppersEnabled() bool {
	return e.enabled
}

// RunBlocking executes the pending move to completion. Returns when every
// axis has reached its target.
func (e *Engine) RunBlocking() {
	e.run(nil)
}

// RunBlockingWithCheck executes the pending move but evaluates stop at the
// velocity-update cadence; when it returns true all axes halt immediately
// (no deceleration) and the function returns true. Step counts stay valid
// either way.
func (e *Engine) RunBlockingWithCheck(stop func() bool) bool {
	return e.run(stop)
}

func (e *Engine) run(stop func() bool) bool {
	var dist [config.NumAxes]int64
	dom := config.X
	var maxDist int64
	for a := config.Axis(0); a < config.NumAxes; a++ {
		d := e.axes[a].distanceToGo()
		if d < 0 {
			d = -d
		}
		dist[a] = d
		if d > maxDist {
			maxDist = d
			dom = a
		}
	}
	if maxDist == 0 {
		return false
	}

	prof := planProfile(maxDist, e.axes[dom].maxSpeed, e.axes[dom].accel)
	e.applyScaledSpeeds(dist, dom, prof.speedAt(0))

	start := e.axes[dom].position
	lastUpdate := core.Micros()

	for {
		e.wdt.Reset()
		now := core.Micros()

		if now-lastUpdate >= speedUpdatePeriodUS {
			lastUpdate = now
			if stop != nil && stop() {
				for a := config.Axis(0); a < config.NumAxes; a++ {
					e.axes[a].stopImmediate()
				}
				return true
			}
			progress := e.axes[dom].position - start
			if progress < 0 {
				progress = -progress
			}
			e.applyScaledSpeeds(dist, dom, prof.speedAt(progress))
		}

		e.refreshDisplay(now)

		moving := false
		for a := config.Axis(0); a < config.NumAxes; a++ {
			if e.axes[a].runSpeedTick() {
				moving = true
			}
		}
		if !moving {
			return false
		}
	}
}

// applyScaledSpeeds sets the dominant axis to v and the others proportional
// to their share of the travel, each capped at its own speed ceiling.
func (e *Engine) applyScaledSpeeds(dist [config.NumAxes]int64, dom config.Axis, v float64) {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		if dist[a] == 0 {
			continue
		}
		va := v
		if a != dom {
			va = v * float64(dist[a]) / float64(dist[dom])
		}
		if va > e.axes[a].maxSpeed {
			va = e.axes[a].maxSpeed
		}
		e.axes[a].setSpeed(va)
	}
}

func (e *Engine) refreshDisplay(now uint32) {
	if e.Refresh == nil {
		return
	}
	if now-e.lastRefresh >= displayPeriodUS {
		e.lastRefresh = now
		e.Refresh()
	}
}

// RefreshDisplay lets other long-running loops (homing) share the engine's
// display cadence.
func (e *Engine) RefreshDisplay() {
	e.refreshDisplay(core.Micros())
}

// Watchdog exposes the liveness timer to loops that run outside the engine.
func (e *Engine) Watchdog() core.Watchdog {
	return e.wdt
}

// RawAxisPulses is a wiring diagnostic: it drives the step port directly at
// a fixed pulse interval, bypassing profiles, step counting and endstops.
// The axis's logical position is untouched; home the axis afterwards.
func (e *Engine) RawAxisPulses(a config.Axis, forward bool, count int, intervalUS uint32) {
	port := e.axes[a].port
	port.Enable()
	port.SetDirection(forward)
	for i := 0; i < count; i++ {
		e.wdt.Reset()
		port.Step()
		core.DelayMicros(intervalUS)
	}
	// restore cached direction knowledge
	e.axes[a].dirKnown = false
}

// profile is a trapezoidal velocity plan over dist steps. accelSteps is the
// distance needed to reach vmax; when the move is too short for that the
// profile degenerates to a triangle with its peak at the midpoint.
type profile struct {
	dist       int64
	accelSteps float64
	vmax       float64
	accel      float64
	floor      float64
}

func planProfile(dist int64, vmax, accel float64) profile {
	p := profile{
		dist:       dist,
		accelSteps: vmax * vmax / (2 * accel),
		vmax:       vmax,
		accel:      accel,
	}
	if 2*p.accelSteps > float64(dist) {
		p.accelSteps = float64(dist) / 2
	}
	p.floor = vmax * speedFloorFraction
	if p.floor < speedFloorMin {
		p.floor = speedFloorMin
	}
	return p
}

// speedAt returns the planned speed for the dominant axis after progress
// steps of travel, floored so the step generator never stalls mid-move.
func (p profile) speedAt(progress int64) float64 {
	pos := float64(progress)
	var v float64
	switch {
	case pos < p.accelSteps:
		v = math.Sqrt(2 * p.accel * pos)
	case pos < float64(p.dist)-p.accelSteps:
		v = p.vmax
	default:
		remaining := float64(p.dist) - pos
		if remaining < 0 {
			remaining = 0
		}
		v = math.Sqrt(2 * p.accel * remaining)
	}
	if v > p.vmax {
		v = p.vmax
	}
	if v < p.floor {
		v = p.floor
	}
	return v
}
