package control

import (
	"fmt"
	"io"

	"plotter/config"
	"plotter/motion"
)

// Responder formats every reply the firmware puts on the serial line.
// The protocol is line oriented: "ok" acknowledges one accepted command,
// "error: <code> - <text>" reports a rejection, "// <text>" is free-form
// status the host may ignore.
type Responder struct {
	w io.Writer
}

func NewResponder(w io.Writer) *Responder {
	return &Responder{w: w}
}

// OK acknowledges one command. Exactly one per accepted line, sent only
// after execution completes; this is what paces the host.
func (r *Responder) OK() {
	fmt.Fprint(r.w, "ok\n")
}

// Error reports a rejected or failed command.
func (r *Responder) Error(code ErrorCode, desc string) {
	fmt.Fprintf(r.w, "error: %d - %s\n", code, desc)
}

// Info emits a status comment.
func (r *Responder) Info(msg string) {
	fmt.Fprintf(r.w, "// %s\n", msg)
}

// Position reports the logical position (M114).
func (r *Responder) Position(p motion.Point) {
	fmt.Fprintf(r.w, "X:%.2f Y:%.2f Z:%.2f\n", p.X, p.Y, p.Z)
}

// FirmwareInfo reports the firmware identity (M115).
func (r *Responder) FirmwareInfo() {
	fmt.Fprintf(r.w, "FIRMWARE_NAME:%s FIRMWARE_VERSION:%s PROTOCOL_VERSION:%s MACHINE_TYPE:%s ELECTRONICS:%s\n",
		config.FirmwareName, config.FirmwareVersion, config.ProtocolVersion,
		config.MachineType, config.BoardType)
}

// EndstopStatus reports the three endstop states (M119). The label carries
// which end of the axis the switch sits on.
func (r *Responder) EndstopStatus(cfg *config.Machine, triggered [config.NumAxes]bool) {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		side := "min"
		if cfg.Axes[a].HomeDir == 1 {
			side = "max"
		}
		state := "open"
		if triggered[a] {
			state = "TRIGGERED"
		}
		fmt.Fprintf(r.w, "%c_%s: %s\n", a.Name()+'a'-'A', side, state)
	}
}

// Settings dumps the active configuration (M503).
func (r *Responder) Settings(cfg *config.Machine, feedrate, speedFactor float64, absolute bool) {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		ax := cfg.Axes[a]
		fmt.Fprintf(r.w, "// %c: steps/mm %.1f vmax %.1f mm/s accel %.1f mm/s2 max %.1f mm home %+d\n",
			a.Name(), ax.StepsPerMM, ax.MaxVelocity, ax.MaxAccel, ax.MaxPosition, ax.HomeDir)
	}
	fmt.Fprintf(r.w, "// homing: fast %.1f slow %.1f mm/s backoff %.1f mm timeout %d s\n",
		cfg.Homing.FastRate, cfg.Homing.SlowRate, cfg.Homing.BackoffMM, cfg.Homing.TimeoutS)
	fmt.Fprintf(r.w, "// feedrate %.1f mm/min speed factor %.0f%% mode %s\n",
		feedrate, speedFactor, modeName(absolute))
}

func modeName(absolute bool) string {
	if absolute {
		return "absolute"
	}
	return "relative"
}
