package motion

import (
	"plotter/config"
	"plotter/core"
)

// fakePort is a StepPort that integrates steps into a physical position so
// tests can compare it against the engine's step counts.
type fakePort struct {
	forward  bool
	pos      int64
	pulses   int
	enabled  bool
	disables int
}

func (p *fakePort) Step() {
	if p.forward {
		p.pos++
	} else {
		p.pos--
	}
	p.pulses++
}

func (p *fakePort) SetDirection(forward bool) { p.forward = forward }
func (p *fakePort) Enable()                   { p.enabled = true }
func (p *fakePort) Disable()                  { p.enabled = false; p.disables++ }

// fakeEndstop reads its level from a closure so tests can derive it from
// the simulated carriage position.
type fakeEndstop struct {
	read func() bool
}

func (e *fakeEndstop) Read() bool {
	if e.read == nil {
		return false
	}
	return e.read()
}

// tickWatchdog advances the simulated clock on every reset. The motion
// loops feed the watchdog each iteration, so this is what makes simulated
// time pass during a blocking move.
type tickWatchdog struct {
	us uint32
}

func (w tickWatchdog) Reset() { core.AdvanceMicros(w.us) }

type rig struct {
	cfg      *config.Machine
	ports    [config.NumAxes]*fakePort
	stops    [config.NumAxes]*fakeEndstop
	engine   *Engine
	endstops *Endstops
	homing   *Homing
}

func newRig(cfg *config.Machine) *rig {
	core.SetMicros(0)
	r := &rig{cfg: cfg}
	var sp [config.NumAxes]core.StepPort
	var ep [config.NumAxes]core.EndstopPort
	for a := config.Axis(0); a < config.NumAxes; a++ {
		r.ports[a] = &fakePort{}
		// Idle level per the configured polarity, so inverted (active-low)
		// inputs do not read as triggered by default.
		inv := cfg.Endstops[a].Invert
		r.stops[a] = &fakeEndstop{read: func() bool { return inv }}
		sp[a] = r.ports[a]
		ep[a] = r.stops[a]
	}
	r.engine = NewEngine(cfg, sp, tickWatchdog{us: 20})
	r.endstops = NewEndstops(cfg, ep)
	r.homing = NewHoming(cfg, r.engine, r.endstops)
	return r
}

// triggerAt makes an endstop fire once the port position passes a step
// threshold, in the axis's home direction. Polarity honors the config.
func (r *rig) triggerAt(a config.Axis, threshold int64) {
	port := r.ports[a]
	dir := r.cfg.Axes[a].HomeDir
	invert := r.cfg.Endstops[a].Invert
	r.stops[a].read = func() bool {
		hit := false
		if dir > 0 {
			hit = port.pos >= threshold
		} else {
			hit = port.pos <= threshold
		}
		return hit != invert
	}
}
