//go:build rp2040

package main

import (
	"machine"

	"plotter/config"
)

// endstopPin is the raw GPIO read behind the debouncer.
type endstopPin struct {
	pin machine.Pin
}

func newEndstopPin(pin machine.Pin, cfg config.EndstopConfig) *endstopPin {
	mode := machine.PinInput
	if cfg.Pullup {
		mode = machine.PinInputPullup
	}
	pin.Configure(machine.PinConfig{Mode: mode})
	return &endstopPin{pin: pin}
}

func (e *endstopPin) Read() bool {
	return e.pin.Get()
}

// hwWatchdog feeds the RP2040 watchdog. A wedged control loop resets the
// MCU instead of leaving the steppers energized against the frame.
type hwWatchdog struct{}

func startWatchdog(timeoutMS uint32) (hwWatchdog, error) {
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMS})
	if err != nil {
		return hwWatchdog{}, err
	}
	return hwWatchdog{}, machine.Watchdog.Start()
}

func (hwWatchdog) Reset() {
	machine.Watchdog.Update()
}
