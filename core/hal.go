// Hardware abstraction layer for the motion firmware.
// Platform-specific implementations live under targets/; tests use mocks.
package core

// StepPort drives one stepper motor channel. Implementations generate a
// single hardware step pulse per Step call; cadence is the caller's job.
type StepPort interface {
	// Step emits one step pulse.
	Step()

	// SetDirection selects travel direction. forward=true is the positive
	// (increasing step count) direction after any configured inversion.
	SetDirection(forward bool)

	// Enable powers the motor driver.
	Enable()

	// Disable removes drive power. Position state is not affected.
	Disable()
}

// EndstopPort reads the raw electrical level of one endstop pin.
// True means the pin is high. Polarity correction happens above this layer.
type EndstopPort interface {
	Read() bool
}

// Watchdog is the hardware liveness timer. Every loop that can outlive the
// watchdog timeout must call Reset each iteration.
type Watchdog interface {
	Reset()
}

// NopWatchdog satisfies Watchdog where no hardware watchdog exists (tests,
// host-side tools).
type NopWatchdog struct{}

func (NopWatchdog) Reset() {}

// AnalogPort reads a raw ADC sample (0..65535, left-aligned like the
// machine package's ADC.Get).
type AnalogPort interface {
	Get() uint16
}
