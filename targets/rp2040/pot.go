//go:build rp2040

package main

import (
	"machine"

	"plotter/config"
	"plotter/control"
	"plotter/core"
)

// potReader samples the front-panel speed potentiometer and maps it onto
// the feed override range. Readings are averaged and changes below a
// threshold are ignored so ADC noise does not constantly rewrite the
// factor (and fight the encoder or M220).
type potReader struct {
	adc        machine.ADC
	minPercent int
	maxPercent int

	samples  [8]uint16
	idx      int
	lastPoll uint32 // millis
	lastPct  int
}

func newPotReader(pin machine.Pin, cfg *config.Machine) *potReader {
	machine.InitADC()
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	p := &potReader{
		adc:        adc,
		minPercent: cfg.PotMinPercent,
		maxPercent: cfg.PotMaxPercent,
		lastPct:    -1,
	}
	first := adc.Get()
	for i := range p.samples {
		p.samples[i] = first
	}
	return p
}

// poll takes one sample every 50 ms and pushes the averaged percentage to
// the controller when the knob has actually moved.
func (p *potReader) poll(ctl *control.Controller) {
	now := core.Millis()
	if now-p.lastPoll < 50 {
		return
	}
	p.lastPoll = now

	p.samples[p.idx] = p.adc.Get()
	p.idx = (p.idx + 1) % len(p.samples)

	var sum uint32
	for _, s := range p.samples {
		sum += uint32(s)
	}
	avg := sum / uint32(len(p.samples))

	span := p.maxPercent - p.minPercent
	pct := p.minPercent + int(avg)*span/65535

	// 2% hysteresis against knob jitter
	if p.lastPct >= 0 && pct >= p.lastPct-2 && pct <= p.lastPct+2 {
		return
	}
	p.lastPct = pct
	ctl.SetSpeedFactor(float64(pct))
}
