package control

import (
	"bytes"
	"strings"
	"testing"

	"plotter/config"
	"plotter/core"
	"plotter/motion"
)

type fakePort struct {
	forward bool
	pos     int64
	enabled bool
}

func (p *fakePort) Step() {
	if p.forward {
		p.pos++
	} else {
		p.pos--
	}
}
func (p *fakePort) SetDirection(forward bool) { p.forward = forward }
func (p *fakePort) Enable()                   { p.enabled = true }
func (p *fakePort) Disable()                  { p.enabled = false }

type fakeEndstop struct {
	read func() bool
}

func (e *fakeEndstop) Read() bool { return e.read() }

type tickWatchdog struct{ us uint32 }

func (w tickWatchdog) Reset() { core.AdvanceMicros(w.us) }

type rig struct {
	cfg   *config.Machine
	ports [config.NumAxes]*fakePort
	stops [config.NumAxes]*fakeEndstop
	ctl   *Controller
	buf   *bytes.Buffer
}

func newRig() *rig {
	core.SetMicros(0)
	cfg := config.Default()
	r := &rig{cfg: cfg, buf: &bytes.Buffer{}}

	var sp [config.NumAxes]core.StepPort
	var ep [config.NumAxes]core.EndstopPort
	for a := config.Axis(0); a < config.NumAxes; a++ {
		r.ports[a] = &fakePort{}
		inv := cfg.Endstops[a].Invert
		r.stops[a] = &fakeEndstop{read: func() bool { return inv }}
		sp[a] = r.ports[a]
		ep[a] = r.stops[a]
	}
	engine := motion.NewEngine(cfg, sp, tickWatchdog{us: 20})
	endstops := motion.NewEndstops(cfg, ep)
	homing := motion.NewHoming(cfg, engine, endstops)
	r.ctl = NewController(cfg, engine, homing, endstops, NewResponder(r.buf))
	return r
}

// triggerAt arms one endstop to fire when the port position crosses a
// threshold in the axis's home direction.
func (r *rig) triggerAt(a config.Axis, threshold int64) {
	port := r.ports[a]
	dir := r.cfg.Axes[a].HomeDir
	invert := r.cfg.Endstops[a].Invert
	r.stops[a].read = func() bool {
		hit := false
		if dir > 0 {
			hit = port.pos >= threshold
		} else {
			hit = port.pos <= threshold
		}
		return hit != invert
	}
}

// homeAll arms every endstop close by and runs G28 through the executor.
func (r *rig) homeAll(t *testing.T) {
	t.Helper()
	r.triggerAt(config.X, r.ports[config.X].pos+int64(10*r.cfg.Axes[config.X].StepsPerMM))
	r.triggerAt(config.Y, r.ports[config.Y].pos-int64(10*r.cfg.Axes[config.Y].StepsPerMM))
	r.triggerAt(config.Z, r.ports[config.Z].pos-int64(5*r.cfg.Axes[config.Z].StepsPerMM))
	r.run(t, "G28")
	if !r.ctl.Snapshot().Homed[config.X] {
		t.Fatal("G28 did not home the machine")
	}
	r.buf.Reset()
}

// run feeds one line and executes until the queue drains.
func (r *rig) run(t *testing.T, line string) {
	t.Helper()
	r.ctl.HandleLine(line)
	for r.ctl.RunOnce() {
	}
}

func okCount(s string) int {
	return strings.Count(s, "ok\n")
}

func TestUnknownCommandRejectedWithOK(t *testing.T) {
	r := newRig()
	r.ctl.HandleLine("G999")
	out := r.buf.String()
	if !strings.Contains(out, "error: 1") {
		t.Fatalf("no unknown-command error in %q", out)
	}
	if okCount(out) != 1 {
		t.Fatalf("rejection must carry exactly one ok, got %q", out)
	}
	if r.ctl.RunOnce() {
		t.Fatal("rejected line reached the queue")
	}
}

func TestBlankLineRejectedAsEmpty(t *testing.T) {
	r := newRig()
	r.ctl.HandleLine("  ; just a comment")
	out := r.buf.String()
	if !strings.Contains(out, "error: 9") {
		t.Fatalf("want empty-command error, got %q", out)
	}
	if okCount(out) != 1 {
		t.Fatalf("want one ok, got %q", out)
	}
}

func TestOKOnlyAfterExecution(t *testing.T) {
	r := newRig()
	r.ctl.HandleLine("M114")
	if okCount(r.buf.String()) != 0 {
		t.Fatalf("ok sent before execution: %q", r.buf.String())
	}
	if !r.ctl.RunOnce() {
		t.Fatal("queued command not executed")
	}
	out := r.buf.String()
	if !strings.Contains(out, "X:0.00 Y:0.00 Z:0.00") {
		t.Fatalf("no position report in %q", out)
	}
	if okCount(out) != 1 {
		t.Fatalf("want exactly one ok after execution, got %q", out)
	}
}

func TestQueueFullRejected(t *testing.T) {
	r := newRig()
	for i := 0; i < 8; i++ {
		r.ctl.HandleLine("M114")
	}
	if got := okCount(r.buf.String()); got != 0 {
		t.Fatalf("accepted lines acknowledged early: %d oks", got)
	}
	r.ctl.HandleLine("M114")
	out := r.buf.String()
	if !strings.Contains(out, "error: 7") {
		t.Fatalf("ninth line not rejected: %q", out)
	}
	if okCount(out) != 1 {
		t.Fatalf("overflow rejection must carry one ok, got %q", out)
	}
}

func TestLineOverflowDiscardedOnce(t *testing.T) {
	r := newRig()
	for i := 0; i < 100; i++ {
		r.ctl.ProcessByte('G')
	}
	r.ctl.ProcessByte('\n')
	out := r.buf.String()
	if strings.Count(out, "error: 7") != 1 {
		t.Fatalf("overlong line must be rejected exactly once: %q", out)
	}
	if r.ctl.RunOnce() {
		t.Fatal("overflowed line reached the queue")
	}

	// The assembler must be clean for the next line.
	r.buf.Reset()
	for _, b := range []byte("M114\r\n") {
		r.ctl.ProcessByte(b)
	}
	if !r.ctl.RunOnce() {
		t.Fatal("line after overflow not accepted")
	}
}

func TestAbsoluteMoveRequiresHoming(t *testing.T) {
	r := newRig()
	r.run(t, "G1 X10")
	if !strings.Contains(r.buf.String(), "error: 6") {
		t.Fatalf("unhomed absolute move not rejected: %q", r.buf.String())
	}
	if r.ports[config.X].pos != 0 {
		t.Fatal("rejected move still generated steps")
	}
}

func TestRelativeJogUnhomedAllowed(t *testing.T) {
	r := newRig()
	r.run(t, "G91")
	r.run(t, "G1 X-5") // away from the X switch at the max side
	if want := -int64(5 * r.cfg.Axes[config.X].StepsPerMM); r.ports[config.X].pos != want {
		t.Fatalf("jog moved %d steps, want %d", r.ports[config.X].pos, want)
	}
	if p := r.ctl.Snapshot().Pos.X; p != -5 {
		t.Fatalf("logical X = %v, want -5", p)
	}
}

func TestSoftLimitRejected(t *testing.T) {
	r := newRig()
	r.homeAll(t)
	r.run(t, "G1 X500")
	if !strings.Contains(r.buf.String(), "error: 3") {
		t.Fatalf("out-of-range target not rejected: %q", r.buf.String())
	}
}

func TestMaxJumpRejected(t *testing.T) {
	r := newRig()
	r.run(t, "G91")
	r.run(t, "G1 X2000")
	if !strings.Contains(r.buf.String(), "error: 3") {
		t.Fatalf("oversized jump not rejected: %q", r.buf.String())
	}
	if r.ports[config.X].pos != 0 {
		t.Fatal("rejected jump still generated steps")
	}
}

func TestEndToEndMove(t *testing.T) {
	r := newRig()
	r.homeAll(t)

	r.run(t, "G1 X50 Y50 F600")
	snap := r.ctl.Snapshot()
	if snap.Pos.X != 50 || snap.Pos.Y != 50 {
		t.Fatalf("logical position %+v, want X=50 Y=50", snap.Pos)
	}

	r.buf.Reset()
	r.run(t, "M114")
	if !strings.Contains(r.buf.String(), "X:50.00 Y:50.00") {
		t.Fatalf("M114 after move: %q", r.buf.String())
	}
}

func TestAxisTargetsMatchKinematics(t *testing.T) {
	r := newRig()
	r.homeAll(t)
	k := motion.NewKinematics(r.cfg)

	before := r.ports[config.X].pos
	r.run(t, "G1 X100")
	moved := r.ports[config.X].pos - before
	want := k.AxisToSteps(config.X, 100) - k.AxisToSteps(config.X, r.cfg.Axes[config.X].MaxPosition)
	if moved != want {
		t.Fatalf("X port moved %d steps, want %d", moved, want)
	}
}

func TestJogIntoEndstopRecovers(t *testing.T) {
	r := newRig()
	r.homeAll(t)

	// The carriage rests on the X switch after homing; jogging further
	// toward it must stop, re-home and restore the reference.
	r.buf.Reset()
	r.run(t, "G91")
	r.run(t, "G1 X5")
	out := r.buf.String()
	if !strings.Contains(out, "re-homing") {
		t.Fatalf("no recovery message in %q", out)
	}
	snap := r.ctl.Snapshot()
	if !snap.Homed[config.X] {
		t.Fatal("X lost its reference after recovery")
	}
	if snap.Pos.X != r.cfg.HomePosition(config.X) {
		t.Fatalf("X = %v after recovery, want %v", snap.Pos.X, r.cfg.HomePosition(config.X))
	}
}

func TestSetPositionSyncsSteps(t *testing.T) {
	r := newRig()
	r.run(t, "G92 X100 Y50")
	snap := r.ctl.Snapshot()
	if snap.Pos.X != 100 || snap.Pos.Y != 50 {
		t.Fatalf("G92 position %+v", snap.Pos)
	}
	// No motion may result from G92.
	if r.ports[config.X].pos != 0 || r.ports[config.Y].pos != 0 {
		t.Fatal("G92 generated steps")
	}
}

func TestSpeedFactorClamped(t *testing.T) {
	r := newRig()
	r.run(t, "M220 S2000")
	if got := r.ctl.SpeedFactor(); got != 999 {
		t.Fatalf("factor = %v, want clamp to 999", got)
	}
	r.run(t, "M220 S0")
	if got := r.ctl.SpeedFactor(); got != 1 {
		t.Fatalf("factor = %v, want clamp to 1", got)
	}
}

func TestIdleTimeoutDisablesSteppers(t *testing.T) {
	r := newRig()
	r.run(t, "G91")
	r.run(t, "G1 X-1") // enables steppers
	if !r.ports[config.X].enabled {
		t.Fatal("steppers not enabled by the move")
	}
	core.AdvanceMicros(601 * 1000 * 1000)
	r.ctl.RunOnce()
	if r.ports[config.X].enabled {
		t.Fatal("steppers still enabled after the idle timeout")
	}
	if !strings.Contains(r.buf.String(), "idle") {
		t.Fatalf("no idle notice in %q", r.buf.String())
	}
}

func TestDisableMotorsTimeoutConfig(t *testing.T) {
	r := newRig()
	r.run(t, "G91")
	r.run(t, "G1 X-1")
	r.run(t, "M84 S0") // timeout off: motors must stay on forever
	core.AdvanceMicros(2000 * 1000 * 1000)
	r.ctl.RunOnce()
	if !r.ports[config.X].enabled {
		t.Fatal("steppers disabled despite M84 S0")
	}
	r.run(t, "M84")
	if r.ports[config.X].enabled {
		t.Fatal("bare M84 did not disable steppers")
	}
}

func TestEndstopReport(t *testing.T) {
	r := newRig()
	r.stops[config.X].read = func() bool { return true } // active-high, held
	r.run(t, "M119") // first poll starts the debounce window
	core.AdvanceMicros(20 * 1000)
	r.buf.Reset()
	r.run(t, "M119")
	out := r.buf.String()
	if !strings.Contains(out, "x_max: TRIGGERED") {
		t.Fatalf("X not reported triggered: %q", out)
	}
	if !strings.Contains(out, "y_min: open") {
		t.Fatalf("Y not reported open: %q", out)
	}
}

func TestFirmwareInfo(t *testing.T) {
	r := newRig()
	r.run(t, "M115")
	out := r.buf.String()
	if !strings.Contains(out, "FIRMWARE_NAME:"+config.FirmwareName) {
		t.Fatalf("M115 output %q", out)
	}
}

func TestDefaultFeedRateFromDrawVelocity(t *testing.T) {
	// Until a G1 carries an F word, moves run at the configured draw
	// velocity, not the axis maximum.
	r := newRig()
	r.run(t, "M503")
	want := "feedrate 3000.0 mm/min" // 50 mm/s draw velocity
	if out := r.buf.String(); !strings.Contains(out, want) {
		t.Fatalf("M503 output %q, want %q", out, want)
	}
}
