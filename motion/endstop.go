package motion

import (
	"plotter/config"
	"plotter/core"
)

// Endstops debounces the three endstop inputs. Raw reads are polarity
// corrected first; a level change restarts the debounce window and the
// committed state only follows once the new level has held for the full
// window. Poll from the control loop, not from an interrupt.
type Endstops struct {
	ports [config.NumAxes]core.EndstopPort
	cfg   *config.Machine

	lastRaw    [config.NumAxes]bool
	committed  [config.NumAxes]bool
	lastChange [config.NumAxes]uint32 // millis of last raw level change
}

// NewEndstops seeds the debounced state from a real read so a switch held
// at boot is visible immediately.
func NewEndstops(cfg *config.Machine, ports [config.NumAxes]core.EndstopPort) *Endstops {
	e := &Endstops{ports: ports, cfg: cfg}
	now := core.Millis()
	for a := config.Axis(0); a < config.NumAxes; a++ {
		raw := e.Raw(a)
		e.lastRaw[a] = raw
		e.committed[a] = raw
		e.lastChange[a] = now
	}
	return e
}

// Raw returns the polarity-corrected instantaneous reading: true means the
// switch is physically triggered right now, bounce and all.
func (e *Endstops) Raw(a config.Axis) bool {
	level := e.ports[a].Read()
	if e.cfg.Endstops[a].Invert {
		return !level
	}
	return level
}

// Triggered polls the input and returns the debounced state. The committed
// state updates on the first poll at or after the debounce window elapses.
func (e *Endstops) Triggered(a config.Axis) bool {
	raw := e.Raw(a)
	now := core.Millis()

	if raw != e.lastRaw[a] {
		e.lastRaw[a] = raw
		e.lastChange[a] = now
		return e.committed[a]
	}
	if raw != e.committed[a] && now-e.lastChange[a] >= e.cfg.Endstops[a].DebounceMS {
		e.committed[a] = raw
	}
	return e.committed[a]
}

// Any polls every axis and reports whether any endstop is triggered.
func (e *Endstops) Any() bool {
	hit := false
	for a := config.Axis(0); a < config.NumAxes; a++ {
		if e.Triggered(a) {
			hit = true
		}
	}
	return hit
}
