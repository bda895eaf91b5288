package motion

import "plotter/config"

// Point is a logical machine position in millimeters.
type Point struct {
	X, Y, Z float64
}

// Axis indexes into a Point.
func (p Point) Axis(a config.Axis) float64 {
	switch a {
	case config.X:
		return p.X
	case config.Y:
		return p.Y
	}
	return p.Z
}

// SetAxis returns p with one coordinate replaced.
func (p Point) SetAxis(a config.Axis, v float64) Point {
	switch a {
	case config.X:
		p.X = v
	case config.Y:
		p.Y = v
	case config.Z:
		p.Z = v
	}
	return p
}

// Kinematics converts between the logical millimeter frame and the step
// frame using the per-axis calibration. Pure math, no state.
type Kinematics struct {
	cfg *config.Machine
}

func NewKinematics(cfg *config.Machine) Kinematics {
	return Kinematics{cfg: cfg}
}

// AxisToSteps converts a millimeter value on one axis to steps, truncating
// toward zero. Sub-step remainders are discarded, never accumulated.
func (k Kinematics) AxisToSteps(a config.Axis, mm float64) int64 {
	return int64(mm * k.cfg.Axes[a].StepsPerMM)
}

// AxisToMM converts a step count on one axis back to millimeters.
func (k Kinematics) AxisToMM(a config.Axis, steps int64) float64 {
	return float64(steps) / k.cfg.Axes[a].StepsPerMM
}

// ToSteps converts a logical position to per-axis step counts.
func (k Kinematics) ToSteps(p Point) [config.NumAxes]int64 {
	return [config.NumAxes]int64{
		k.AxisToSteps(config.X, p.X),
		k.AxisToSteps(config.Y, p.Y),
		k.AxisToSteps(config.Z, p.Z),
	}
}

// ToMM converts per-axis step counts to a logical position.
func (k Kinematics) ToMM(steps [config.NumAxes]int64) Point {
	return Point{
		X: k.AxisToMM(config.X, steps[config.X]),
		Y: k.AxisToMM(config.Y, steps[config.Y]),
		Z: k.AxisToMM(config.Z, steps[config.Z]),
	}
}

// ValidPosition reports whether p lies inside the soft-limit envelope.
// Both bounds are inclusive so the machine can touch its own limits.
func (k Kinematics) ValidPosition(p Point) bool {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		v := p.Axis(a)
		if v < 0 || v > k.cfg.Axes[a].MaxPosition {
			return false
		}
	}
	return true
}
