package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	data := []byte(`{
		"axes": [
			{"steps_per_mm": 80, "max_velocity": 100, "max_accel": 1000,
			 "max_position": 300, "home_dir": -1},
			{"steps_per_mm": 160, "max_velocity": 100, "max_accel": 1000,
			 "max_position": 191, "home_dir": -1},
			{"steps_per_mm": 400, "max_velocity": 10, "max_accel": 500,
			 "max_position": 203, "home_dir": -1}
		],
		"max_jump_mm": 500
	}`)
	cfg, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Axes[X].StepsPerMM != 80 || cfg.Axes[X].MaxPosition != 300 {
		t.Fatalf("X axis not overridden: %+v", cfg.Axes[X])
	}
	if cfg.MaxJumpMM != 500 {
		t.Fatalf("MaxJumpMM = %v", cfg.MaxJumpMM)
	}
	// Untouched sections keep their defaults.
	if cfg.Homing.BackoffMM != 10 {
		t.Fatalf("homing defaults lost: %+v", cfg.Homing)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero steps per mm", `{"axes": [{"steps_per_mm": 0, "max_velocity": 1, "max_accel": 1, "max_position": 1, "home_dir": 1}]}`},
		{"bad home dir", `{"axes": [{"steps_per_mm": 1, "max_velocity": 1, "max_accel": 1, "max_position": 1, "home_dir": 2}]}`},
		{"not json", `steps=80`},
	}
	for _, tt := range tests {
		if _, err := Load([]byte(tt.data)); err == nil {
			t.Errorf("%s: Load accepted invalid config", tt.name)
		}
	}
}

func TestHomePosition(t *testing.T) {
	cfg := Default()
	if got := cfg.HomePosition(X); got != cfg.Axes[X].MaxPosition {
		t.Errorf("X homes to max side, HomePosition = %v", got)
	}
	if got := cfg.HomePosition(Y); got != 0 {
		t.Errorf("Y homes to min side, HomePosition = %v", got)
	}
	if got := cfg.HomePosition(Z); got != cfg.Homing.ZClearance {
		t.Errorf("Z parks at clearance, HomePosition = %v", got)
	}
}

func TestAxisName(t *testing.T) {
	tests := []struct {
		axis Axis
		want byte
	}{
		{X, 'X'}, {Y, 'Y'}, {Z, 'Z'}, {NumAxes, '?'},
	}
	for _, tt := range tests {
		if got := tt.axis.Name(); got != tt.want {
			t.Errorf("Axis(%d).Name() = %c, want %c", tt.axis, got, tt.want)
		}
	}
}
