//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/encoders"

	"plotter/control"
	"plotter/core"
)

// panelEncoder is the front-panel rotary encoder: turning trims the feed
// override in 5% detents, the push button pauses/resumes a file job.
type panelEncoder struct {
	enc     *encoders.QuadratureDevice
	btn     machine.Pin
	lastPos int
	btnDown bool
	btnAt   uint32 // millis, for button debounce
}

func newPanelEncoder() *panelEncoder {
	enc := encoders.NewQuadratureViaInterrupt(pinEncoderA, pinEncoderB)
	enc.Configure(encoders.QuadratureConfig{Precision: 4})
	pinEncoderBtn.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &panelEncoder{enc: enc, btn: pinEncoderBtn}
}

func (p *panelEncoder) poll(ctl *control.Controller) {
	pos := p.enc.Position()
	if delta := pos - p.lastPos; delta != 0 {
		p.lastPos = pos
		ctl.SetSpeedFactor(ctl.SpeedFactor() + float64(delta)*5)
	}

	// Active-low button, 30 ms debounce, act on press.
	pressed := !p.btn.Get()
	now := core.Millis()
	if pressed != p.btnDown && now-p.btnAt >= 30 {
		p.btnDown = pressed
		p.btnAt = now
		if pressed {
			p.onButton(ctl)
		}
	}
}

func (p *panelEncoder) onButton(ctl *control.Controller) {
	if ctl.JobActive() {
		// Toggle pause through the normal command path so the behavior
		// matches the serial M25/M24 exactly.
		if ctl.Snapshot().JobPaused {
			ctl.HandleLine("M24")
		} else {
			ctl.HandleLine("M25")
		}
		return
	}
	startStoredJob(ctl)
}
