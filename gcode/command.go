package gcode

import "plotter/config"

// Command is the decoded form of one G-code line. Exactly one concrete type
// per instruction; each carries only its own parameters.
type Command interface {
	isCommand()
}

// Move is G0/G1. Absent parameters leave the corresponding axis untouched.
type Move struct {
	HasX bool
	X    float64
	HasY bool
	Y    float64
	HasZ bool
	Z    float64
	HasF bool
	F    float64 // feedrate, mm/min
}

// Home is G28. With no axis letters All is set and every axis is homed.
type Home struct {
	X, Y, Z bool
	All     bool
}

// SetAbsolute is G90.
type SetAbsolute struct{}

// SetRelative is G91.
type SetRelative struct{}

// SetPosition is G92: redefine logical position without motion.
type SetPosition struct {
	HasX bool
	X    float64
	HasY bool
	Y    float64
	HasZ bool
	Z    float64
}

// DisableMotors is M84. S reconfigures the idle timeout in seconds;
// S0 disables the timeout entirely.
type DisableMotors struct {
	HasTimeout bool
	TimeoutS   float64
}

// SetSpeedFactor is M220 S<percent>.
type SetSpeedFactor struct {
	HasPercent bool
	Percent    float64
}

// Stop is M0: drain the queue and halt.
type Stop struct{}

// Resume is M24: resume a paused file job.
type Resume struct{}

// Pause is M25: pause the running file job.
type Pause struct{}

// ReportPosition is M114.
type ReportPosition struct{}

// ReportFirmwareInfo is M115.
type ReportFirmwareInfo struct{}

// ReportEndstops is M119.
type ReportEndstops struct{}

// Quickstop is M410: drain the queue, halt, and abort any file job.
type Quickstop struct{}

// ReportSettings is M503.
type ReportSettings struct{}

// RawAxisTest is M999: raw pin-toggle diagnostic bypassing the motion engine.
type RawAxisTest struct {
	Axis config.Axis
}

// Unknown is any line whose instruction code is not recognized. Rejection
// happens at the transport boundary, not here.
type Unknown struct {
	Line string
}

func (Move) isCommand()               {}
func (Home) isCommand()               {}
func (SetAbsolute) isCommand()        {}
func (SetRelative) isCommand()        {}
func (SetPosition) isCommand()        {}
func (DisableMotors) isCommand()      {}
func (SetSpeedFactor) isCommand()     {}
func (Stop) isCommand()               {}
func (Resume) isCommand()             {}
func (Pause) isCommand()              {}
func (ReportPosition) isCommand()     {}
func (ReportFirmwareInfo) isCommand() {}
func (ReportEndstops) isCommand()     {}
func (Quickstop) isCommand()          {}
func (ReportSettings) isCommand()     {}
func (RawAxisTest) isCommand()        {}
func (Unknown) isCommand()            {}
