//go:build rp2040

package main

import "machine"

// gpioStepper drives one step/dir channel by direct GPIO toggling. The
// simple fallback backend; the PIO backend produces cleaner pulses.
type gpioStepper struct {
	stepPin   machine.Pin
	dirPin    machine.Pin
	enablePin machine.Pin // shared between channels, active low
	invertDir bool
}

func newGPIOStepper(step, dir, enable machine.Pin, invertDir bool) *gpioStepper {
	s := &gpioStepper{
		stepPin:   step,
		dirPin:    dir,
		enablePin: enable,
		invertDir: invertDir,
	}
	s.stepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.enablePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.stepPin.Low()
	s.enablePin.High() // disabled until the first move
	return s
}

// Step emits one pulse. A4988/DRV8825 class drivers need roughly 2 us of
// high time; the busy loop gives about that at 125 MHz.
func (s *gpioStepper) Step() {
	s.stepPin.High()
	for i := 0; i < 250; i++ {
	}
	s.stepPin.Low()
}

func (s *gpioStepper) SetDirection(forward bool) {
	if s.invertDir {
		forward = !forward
	}
	if forward {
		s.dirPin.High()
	} else {
		s.dirPin.Low()
	}
}

func (s *gpioStepper) Enable()  { s.enablePin.Low() }
func (s *gpioStepper) Disable() { s.enablePin.High() }
