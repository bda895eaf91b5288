package control

import (
	"errors"
	"math"

	"plotter/config"
	"plotter/core"
	"plotter/gcode"
	"plotter/motion"
)

// Event is a state transition the target may want to signal on (buzzer,
// LED). Delivered synchronously from the control loop.
type Event uint8

const (
	EventStartup Event = iota
	EventHomingDone
	EventJobDone
	EventFault
)

// Snapshot is the read-only view the status display renders from.
type Snapshot struct {
	Pos          motion.Point
	Absolute     bool
	SpeedFactor  float64
	QueueLen     int
	Homed        [config.NumAxes]bool
	HomingActive bool
	SteppersOn   bool
	JobActive    bool
	JobPaused    bool
	JobProgress  int
	LinesPlotted uint32
}

// Controller is the command executor. It assembles serial bytes into lines,
// decodes and queues them, and executes one queued command at a time; "ok"
// goes out only after a command finishes, which is what paces the host on
// a half-duplex line.
type Controller struct {
	cfg      *config.Machine
	kin      motion.Kinematics
	engine   *motion.Engine
	homing   *motion.Homing
	endstops *motion.Endstops
	out      *Responder

	// Notify is called on state transitions the target may signal on.
	// May be nil.
	Notify func(Event)

	queue gcode.Buffer
	job   fileJob

	pos         motion.Point
	absolute    bool
	feedRate    float64 // mm/min
	speedFactor float64 // percent

	idleTimeoutS uint32
	lastActivity uint32 // millis
	linesPlotted uint32

	lineBuf [gcode.MaxLineLength]byte
	lineLen int
	discard bool
}

func NewController(cfg *config.Machine, engine *motion.Engine, homing *motion.Homing, endstops *motion.Endstops, out *Responder) *Controller {
	return &Controller{
		cfg:          cfg,
		kin:          motion.NewKinematics(cfg),
		engine:       engine,
		homing:       homing,
		endstops:     endstops,
		out:          out,
		absolute:     true,
		feedRate:     cfg.DefaultDrawVelocity * 60,
		speedFactor:  100,
		idleTimeoutS: cfg.IdleTimeoutS,
		lastActivity: core.Millis(),
	}
}

// ProcessByte feeds one received serial byte into the line assembler.
// Complete lines go to HandleLine; an overlong line is rejected once and
// discarded through its terminator.
func (c *Controller) ProcessByte(b byte) {
	if b == '\n' || b == '\r' {
		if c.discard {
			c.discard = false
			c.lineLen = 0
			return
		}
		if c.lineLen == 0 {
			return // bare terminator (CRLF tail)
		}
		line := string(c.lineBuf[:c.lineLen])
		c.lineLen = 0
		c.HandleLine(line)
		return
	}
	if c.lineLen >= len(c.lineBuf) {
		if !c.discard {
			c.discard = true
			c.reject(ErrBufferOverflow, "line too long")
		}
		return
	}
	c.lineBuf[c.lineLen] = b
	c.lineLen++
}

// HandleLine decodes one line and queues it. Rejections (unknown code,
// blank line, full queue) are reported immediately with an error and an
// "ok" so the host's line accounting stays balanced; accepted lines are
// acknowledged later, after execution.
func (c *Controller) HandleLine(line string) {
	if len(line) > gcode.MaxLineLength {
		c.reject(ErrBufferOverflow, "line too long")
		return
	}
	cmd := gcode.Parse(line)
	if _, bad := cmd.(gcode.Unknown); bad {
		if gcode.Blank(line) {
			c.reject(ErrEmptyCommand, "empty command")
		} else {
			c.reject(ErrUnknownCommand, "unknown command: "+line)
		}
		return
	}
	if !c.queue.Push(cmd) {
		c.reject(ErrBufferOverflow, "command buffer full")
		return
	}
	c.lastActivity = core.Millis()
}

// reject reports an error for a line that never entered the queue. The
// trailing ok keeps the host's send window moving.
func (c *Controller) reject(code ErrorCode, desc string) {
	c.out.Error(code, desc)
	c.out.OK()
}

// RunOnce is one control-loop iteration: top up the queue from a running
// file job, enforce the idle timeout, then execute at most one command.
// Returns whether a command was executed.
func (c *Controller) RunOnce() bool {
	c.feedJob()
	c.checkIdleTimeout()

	cmd, ok := c.queue.Pop()
	if !ok {
		return false
	}
	c.execute(cmd)
	c.out.OK()
	c.lastActivity = core.Millis()
	return true
}

// Snapshot returns the current machine state for the display.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Pos:          c.pos,
		Absolute:     c.absolute,
		SpeedFactor:  c.speedFactor,
		QueueLen:     c.queue.Len(),
		HomingActive: c.homing.Active(),
		SteppersOn:   c.engine.SteppersEnabled(),
		JobActive:    c.job.active(),
		JobPaused:    c.job.status == jobPaused,
		JobProgress:  c.job.progress(),
		LinesPlotted: c.linesPlotted,
	}
	for a := config.Axis(0); a < config.NumAxes; a++ {
		s.Homed[a] = c.homing.Homed(a)
	}
	return s
}

// SetSpeedFactor applies a feed override in percent, clamped to 1..999.
// Shared by M220 and the front-panel potentiometer.
func (c *Controller) SetSpeedFactor(percent float64) {
	if percent < 1 {
		percent = 1
	}
	if percent > 999 {
		percent = 999
	}
	c.speedFactor = percent
}

// SpeedFactor returns the active feed override in percent.
func (c *Controller) SpeedFactor() float64 {
	return c.speedFactor
}

// StartJob begins feeding lines from storage. Fails if a job is already
// active.
func (c *Controller) StartJob(src LineSource) error {
	if c.job.active() {
		return errors.New("a file job is already active")
	}
	c.job = fileJob{src: src, status: jobRunning}
	c.out.Info("file job started")
	return nil
}

// JobActive reports whether a file job is feeding or paused.
func (c *Controller) JobActive() bool {
	return c.job.active()
}

func (c *Controller) feedJob() {
	if c.job.status != jobRunning {
		return
	}
	// Leave one slot so a serial command (M25, M410) can still get in
	// while the file keeps the queue topped up.
	for c.queue.Len() < gcode.BufferCapacity-1 {
		line, ok := c.job.src.ReadLine()
		if !ok {
			c.out.Info("file job complete")
			c.job.finish()
			c.signal(EventJobDone)
			return
		}
		cmd := gcode.Parse(line)
		if _, bad := cmd.(gcode.Unknown); bad {
			continue // blank lines and comments in the file are fine
		}
		c.queue.Push(cmd)
	}
}

func (c *Controller) checkIdleTimeout() {
	if c.idleTimeoutS == 0 || !c.engine.SteppersEnabled() {
		return
	}
	if !c.queue.Empty() || c.job.status == jobRunning {
		c.lastActivity = core.Millis()
		return
	}
	if core.Millis()-c.lastActivity >= c.idleTimeoutS*1000 {
		c.engine.DisableSteppers()
		c.out.Info("steppers disabled after idle timeout")
	}
}

func (c *Controller) execute(cmd gcode.Command) {
	switch v := cmd.(type) {
	case gcode.Move:
		c.doMove(v)
	case gcode.Home:
		c.doHome(v)
	case gcode.SetAbsolute:
		c.absolute = true
	case gcode.SetRelative:
		c.absolute = false
	case gcode.SetPosition:
		c.doSetPosition(v)
	case gcode.DisableMotors:
		c.doDisableMotors(v)
	case gcode.SetSpeedFactor:
		c.doSpeedFactor(v)
	case gcode.Stop:
		c.queue.Clear()
		c.engine.DisableSteppers()
		c.out.Info("stopped, queue drained")
	case gcode.Quickstop:
		c.queue.Clear()
		if c.job.active() {
			c.job.finish()
			c.out.Info("file job aborted")
		}
		c.engine.DisableSteppers()
		c.out.Info("quickstop, queue drained")
	case gcode.Pause:
		if c.job.status == jobRunning {
			c.job.status = jobPaused
			c.out.Info("file job paused")
		} else {
			c.out.Info("no running file job")
		}
	case gcode.Resume:
		if c.job.status == jobPaused {
			c.job.status = jobRunning
			c.out.Info("file job resumed")
		} else {
			c.out.Info("no paused file job")
		}
	case gcode.ReportPosition:
		c.out.Position(c.pos)
	case gcode.ReportFirmwareInfo:
		c.out.FirmwareInfo()
	case gcode.ReportEndstops:
		var trig [config.NumAxes]bool
		for a := config.Axis(0); a < config.NumAxes; a++ {
			trig[a] = c.endstops.Triggered(a)
		}
		c.out.EndstopStatus(c.cfg, trig)
	case gcode.ReportSettings:
		c.out.Settings(c.cfg, c.feedRate, c.speedFactor, c.absolute)
	case gcode.RawAxisTest:
		c.out.Info("raw pulse test, position is no longer trusted")
		c.engine.RawAxisPulses(v.Axis, true, 200, 500)
		c.homing.Invalidate()
	}
}

func (c *Controller) doMove(m gcode.Move) {
	target := c.pos
	if c.absolute {
		if m.HasX {
			target.X = m.X
		}
		if m.HasY {
			target.Y = m.Y
		}
		if m.HasZ {
			target.Z = m.Z
		}
	} else {
		if m.HasX {
			target.X += m.X
		}
		if m.HasY {
			target.Y += m.Y
		}
		if m.HasZ {
			target.Z += m.Z
		}
	}
	if m.HasF {
		if m.F <= 0 {
			c.out.Error(ErrInvalidSyntax, "feedrate must be positive")
			return
		}
		c.feedRate = m.F
	}

	dx := target.X - c.pos.X
	dy := target.Y - c.pos.Y
	dz := target.Z - c.pos.Z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

	if dist > c.cfg.MaxJumpMM {
		c.out.Error(ErrOutOfRange, "move exceeds maximum jump distance")
		return
	}

	if c.absolute {
		// Absolute coordinates are meaningless without a reference, and a
		// wrong reference drives the carriage into the frame. Checked per
		// commanded axis so an unhomed Z does not block XY work.
		for a := config.Axis(0); a < config.NumAxes; a++ {
			commanded := (a == config.X && m.HasX) || (a == config.Y && m.HasY) || (a == config.Z && m.HasZ)
			if commanded && !c.homing.Homed(a) {
				c.out.Error(ErrNotHomed, "home "+string(a.Name())+" axis first")
				return
			}
		}
		if !c.kin.ValidPosition(target) {
			c.out.Error(ErrOutOfRange, "target outside machine limits")
			return
		}
	}

	if dist < 1e-6 {
		c.pos = target // feedrate-only line
		return
	}

	// Per-axis speed is the commanded speed split by each axis's share of
	// the travel, so the velocity vector points along the line.
	mmps := c.feedRate / 60 * c.speedFactor / 100
	c.setMoveSpeeds(dx, dy, dz, dist, mmps)

	c.engine.EnableSteppers()
	c.engine.MoveTo(c.kin.ToSteps(target))

	if !c.absolute {
		// Relative jogs run without soft limits (that is their point, you
		// jog an unhomed machine), so arm the endstops on any axis moving
		// toward its switch.
		var watch [config.NumAxes]bool
		armed := false
		delta := [config.NumAxes]float64{dx, dy, dz}
		for a := config.Axis(0); a < config.NumAxes; a++ {
			if float64(c.cfg.Axes[a].HomeDir)*delta[a] > 0.001 {
				watch[a] = true
				armed = true
			}
		}
		if armed {
			stopped := c.engine.RunBlockingWithCheck(func() bool {
				for a := config.Axis(0); a < config.NumAxes; a++ {
					if watch[a] && c.endstops.Triggered(a) {
						return true
					}
				}
				return false
			})
			if stopped {
				c.recoverEndstopHit(watch)
				return
			}
		} else {
			c.engine.RunBlocking()
		}
	} else {
		c.engine.RunBlocking()
	}

	c.pos = target
	c.linesPlotted++
}

// setMoveSpeeds distributes the commanded speed across the axes in
// proportion to their displacement, each capped at its configured maximum.
func (c *Controller) setMoveSpeeds(dx, dy, dz, dist, mmps float64) {
	share := [config.NumAxes]float64{
		math.Abs(dx) / dist,
		math.Abs(dy) / dist,
		math.Abs(dz) / dist,
	}
	for a := config.Axis(0); a < config.NumAxes; a++ {
		c.engine.RestoreLimits(a)
		v := mmps * share[a]
		if max := c.cfg.Axes[a].MaxVelocity; v > max {
			v = max
		}
		if v > 0 {
			c.engine.SetMaxSpeed(a, v*c.cfg.Axes[a].StepsPerMM)
		}
	}
}

// recoverEndstopHit handles a jog that ran into a switch: resynchronize the
// logical position from the step counts at the halt point, re-home the
// triggered axis to restore a trusted reference, and carry on. This is a
// recovery path, not a failure.
func (c *Controller) recoverEndstopHit(watch [config.NumAxes]bool) {
	hit := config.X
	found := false
	for a := config.Axis(0); a < config.NumAxes; a++ {
		if watch[a] && c.endstops.Triggered(a) {
			hit = a
			found = true
		}
	}
	c.pos = c.kin.ToMM(c.engine.CurrentSteps())
	if !found {
		return
	}
	c.out.Info("endstop hit on " + string(hit.Name()) + ", re-homing")
	if err := c.homing.HomeAxis(hit); err != nil {
		c.out.Error(c.homingCode(err), "re-home failed: "+err.Error())
		c.pos = c.pos.SetAxis(hit, c.kin.AxisToMM(hit, 0))
		return
	}
	c.pos = c.pos.SetAxis(hit, c.cfg.HomePosition(hit))
	c.engine.SetAxisPosition(hit, c.kin.AxisToSteps(hit, c.pos.Axis(hit)))
}

func (c *Controller) doHome(h gcode.Home) {
	c.engine.EnableSteppers()
	if h.All {
		errs, ok := c.homing.HomeAll()
		for a := config.Axis(0); a < config.NumAxes; a++ {
			if errs[a] != nil {
				c.out.Error(c.homingCode(errs[a]), string(a.Name())+": "+errs[a].Error())
			}
		}
		c.syncHomedAxes()
		if ok {
			c.out.Info("homing complete")
			c.signal(EventHomingDone)
		} else {
			c.signal(EventFault)
		}
		return
	}

	failed := false
	for a := config.Axis(0); a < config.NumAxes; a++ {
		requested := (a == config.X && h.X) || (a == config.Y && h.Y) || (a == config.Z && h.Z)
		if !requested {
			continue
		}
		if err := c.homing.HomeAxis(a); err != nil {
			c.out.Error(c.homingCode(err), string(a.Name())+": "+err.Error())
			failed = true
		}
	}
	c.syncHomedAxes()
	if !failed {
		c.signal(EventHomingDone)
	} else {
		c.signal(EventFault)
	}
}

// syncHomedAxes rewrites the logical coordinates of every homed axis to its
// post-home position and aligns the step counters. Unhomed axes are left
// alone; their zeroed counters already mark them untrusted.
func (c *Controller) syncHomedAxes() {
	for a := config.Axis(0); a < config.NumAxes; a++ {
		if !c.homing.Homed(a) {
			continue
		}
		c.pos = c.pos.SetAxis(a, c.cfg.HomePosition(a))
		c.engine.SetAxisPosition(a, c.kin.AxisToSteps(a, c.pos.Axis(a)))
	}
}

func (c *Controller) homingCode(err error) ErrorCode {
	if errors.Is(err, motion.ErrTimeout) {
		return ErrTimeout
	}
	return ErrHomingFailed
}

func (c *Controller) doSetPosition(s gcode.SetPosition) {
	if !s.HasX && !s.HasY && !s.HasZ {
		c.out.Position(c.pos)
		return
	}
	if s.HasX {
		c.pos.X = s.X
		c.engine.SetAxisPosition(config.X, c.kin.AxisToSteps(config.X, s.X))
	}
	if s.HasY {
		c.pos.Y = s.Y
		c.engine.SetAxisPosition(config.Y, c.kin.AxisToSteps(config.Y, s.Y))
	}
	if s.HasZ {
		c.pos.Z = s.Z
		c.engine.SetAxisPosition(config.Z, c.kin.AxisToSteps(config.Z, s.Z))
	}
}

func (c *Controller) doDisableMotors(d gcode.DisableMotors) {
	if d.HasTimeout {
		if d.TimeoutS < 0 {
			c.out.Error(ErrOutOfRange, "timeout must not be negative")
			return
		}
		c.idleTimeoutS = uint32(d.TimeoutS)
		if c.idleTimeoutS == 0 {
			c.out.Info("idle timeout disabled")
		} else {
			c.out.Info("idle timeout updated")
		}
		return
	}
	c.engine.DisableSteppers()
	c.out.Info("steppers disabled")
}

func (c *Controller) doSpeedFactor(s gcode.SetSpeedFactor) {
	if !s.HasPercent {
		c.out.Settings(c.cfg, c.feedRate, c.speedFactor, c.absolute)
		return
	}
	c.SetSpeedFactor(s.Percent)
	c.out.Info("speed factor updated")
}

func (c *Controller) signal(ev Event) {
	if c.Notify != nil {
		c.Notify(ev)
	}
}
