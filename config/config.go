package config

import (
	"encoding/json"
	"errors"
)

// Firmware identity reported by M115
const (
	FirmwareName    = "SimplePlotter"
	FirmwareVersion = "1.4.0"
	BoardType       = "MKS_Gen_v1.4"
	ProtocolVersion = "1.0"
	MachineType     = "PenPlotter"
)

// Axis indexes the three linear axes everywhere in the firmware.
type Axis int

const (
	X Axis = iota
	Y
	Z
	NumAxes
)

// Name returns the G-code address letter for the axis.
func (a Axis) Name() byte {
	switch a {
	case X:
		return 'X'
	case Y:
		return 'Y'
	case Z:
		return 'Z'
	}
	return '?'
}

// AxisConfig holds per-axis calibration. Steps/mm values are measured
// calibration constants, never derived in code.
type AxisConfig struct {
	StepsPerMM  float64 `json:"steps_per_mm"`
	MaxVelocity float64 `json:"max_velocity"` // mm/s
	MaxAccel    float64 `json:"max_accel"`    // mm/s^2
	MaxPosition float64 `json:"max_position"` // mm, soft limit (min is 0)
	HomeDir     int     `json:"home_dir"`     // -1 = min endstop, 1 = max endstop
	InvertDir   bool    `json:"invert_dir"`
}

// EndstopConfig holds per-axis endstop wiring.
type EndstopConfig struct {
	// Invert=false: pin HIGH means triggered (NO switch / active-high sensor).
	// Invert=true: pin LOW means triggered (active-low sensor).
	Invert     bool   `json:"invert"`
	Pullup     bool   `json:"pullup"`
	DebounceMS uint32 `json:"debounce_ms"`
}

// HomingConfig holds the shared homing parameters.
type HomingConfig struct {
	FastRate    float64 `json:"fast_rate"`    // mm/s fast approach
	SlowRate    float64 `json:"slow_rate"`    // mm/s precision approach
	BackoffMM   float64 `json:"backoff_mm"`   // retract after trigger
	TimeoutS    uint32  `json:"timeout_s"`    // per phase
	AccelFactor float64 `json:"accel_factor"` // fraction of normal accel during homing
	ZClearance  float64 `json:"z_clearance"`  // mm above sensor after Z homing
}

// Machine is the complete machine configuration. Immutable after startup.
type Machine struct {
	Axes     [NumAxes]AxisConfig    `json:"axes"`
	Endstops [NumAxes]EndstopConfig `json:"endstops"`
	Homing   HomingConfig           `json:"homing"`

	DefaultDrawVelocity float64 `json:"default_draw_velocity"` // mm/s
	MaxJumpMM           float64 `json:"max_jump_mm"`           // single-move safety ceiling
	IdleTimeoutS        uint32  `json:"idle_timeout_s"`        // 0 = never disable
	PotMinPercent       int     `json:"pot_min_percent"`
	PotMaxPercent       int     `json:"pot_max_percent"`
}

// Load parses a JSON configuration and fills in defaults for missing values.
func Load(data []byte) (*Machine, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the motion engine cannot run safely.
func (m *Machine) Validate() error {
	for a := Axis(0); a < NumAxes; a++ {
		ax := &m.Axes[a]
		if ax.StepsPerMM <= 0 {
			return errors.New("axis steps_per_mm must be positive")
		}
		if ax.MaxVelocity <= 0 || ax.MaxAccel <= 0 {
			return errors.New("axis velocity and acceleration must be positive")
		}
		if ax.MaxPosition <= 0 {
			return errors.New("axis max_position must be positive")
		}
		if ax.HomeDir != 1 && ax.HomeDir != -1 {
			return errors.New("axis home_dir must be 1 or -1")
		}
	}
	if m.Homing.BackoffMM <= 0 || m.Homing.FastRate <= 0 || m.Homing.SlowRate <= 0 {
		return errors.New("homing rates and backoff must be positive")
	}
	return nil
}

// HomePosition returns the logical coordinate an axis holds right after a
// successful home: the home-side physical coordinate, except Z which parks
// at the configured clearance height.
func (m *Machine) HomePosition(a Axis) float64 {
	if a == Z {
		return m.Homing.ZClearance
	}
	if m.Axes[a].HomeDir == 1 {
		return m.Axes[a].MaxPosition
	}
	return 0
}

// Default returns the measured calibration of the reference plotter.
// The Z steps/mm value carries an unverified microstepping assumption from
// the source machine; treat it as calibration input, not ground truth.
func Default() *Machine {
	return &Machine{
		Axes: [NumAxes]AxisConfig{
			X: {
				StepsPerMM:  160.0,
				MaxVelocity: 100.0,
				MaxAccel:    1000.0,
				MaxPosition: 234.0,
				HomeDir:     1, // endstop at the right (max) side
				InvertDir:   true,
			},
			Y: {
				StepsPerMM:  160.0,
				MaxVelocity: 100.0,
				MaxAccel:    1000.0,
				MaxPosition: 191.0,
				HomeDir:     -1,
			},
			Z: {
				StepsPerMM:  400.0,
				MaxVelocity: 10.0,
				MaxAccel:    500.0, // pen lift - gentle
				MaxPosition: 203.0,
				HomeDir:     -1,
			},
		},
		Endstops: [NumAxes]EndstopConfig{
			X: {Invert: false, Pullup: true, DebounceMS: 10}, // optical, HIGH=triggered
			Y: {Invert: true, Pullup: true, DebounceMS: 10},  // mechanical, active-LOW
			Z: {Invert: false, Pullup: true, DebounceMS: 10}, // optical, HIGH=triggered
		},
		Homing: HomingConfig{
			FastRate:    20.0,
			SlowRate:    5.0,
			BackoffMM:   10.0,
			TimeoutS:    60,
			AccelFactor: 0.5,
			ZClearance:  2.0,
		},
		DefaultDrawVelocity: 50.0,
		MaxJumpMM:           1000.0,
		IdleTimeoutS:        600,
		PotMinPercent:       10,
		PotMaxPercent:       200,
	}
}
