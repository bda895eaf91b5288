//go:build rp2040

package main

import (
	"fmt"
	"machine"

	"tinygo.org/x/drivers/hd44780"

	"plotter/config"
	"plotter/control"
)

// statusDisplay renders machine state on a 16x2 character LCD. Rendering
// is cheap enough to run from the motion engine's refresh hook, so the
// display stays live during long moves and homing.
type statusDisplay struct {
	lcd  hd44780.Device
	ok   bool
	line [2][16]byte
}

func newStatusDisplay() *statusDisplay {
	d := &statusDisplay{}
	lcd, err := hd44780.NewGPIO4Bit(
		[]machine.Pin{pinLCDD4, pinLCDD5, pinLCDD6, pinLCDD7},
		pinLCDEN, pinLCDRS, machine.NoPin)
	if err != nil {
		return d
	}
	d.lcd = lcd
	if err := d.lcd.Configure(hd44780.Config{Width: 16, Height: 2, Font: hd44780.FONT_5X8}); err != nil {
		return d
	}
	d.ok = true
	d.lcd.ClearDisplay()
	return d
}

// render draws two lines: position on top, state on the bottom.
//
//	X123.4 Y56.7 ^Z
//	H 100% Q3  42%
func (d *statusDisplay) render(s control.Snapshot) {
	if !d.ok {
		return
	}

	top := fmt.Sprintf("X%.1f Y%.1f %s", s.Pos.X, s.Pos.Y, penGlyph(s.Pos.Z))

	var state string
	switch {
	case s.HomingActive:
		state = "homing..."
	case s.JobActive && s.JobPaused:
		state = fmt.Sprintf("paused %3d%%", s.JobProgress)
	case s.JobActive:
		state = fmt.Sprintf("plot %3d%% F%.0f%%", s.JobProgress, s.SpeedFactor)
	default:
		state = fmt.Sprintf("%s F%.0f%% Q%d", homedFlags(s), s.SpeedFactor, s.QueueLen)
	}

	d.writeLine(0, top)
	d.writeLine(1, state)
	d.lcd.Display()
}

// writeLine pads to the full width so stale characters never linger.
func (d *statusDisplay) writeLine(row uint8, text string) {
	buf := &d.line[row]
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf[:], text)
	d.lcd.SetCursor(0, row)
	d.lcd.Write(buf[:])
}

func penGlyph(z float64) string {
	if z < 0.5 {
		return "vZ" // pen down
	}
	return "^Z"
}

// homedFlags shows the axis letter when homed, '?' when not.
func homedFlags(s control.Snapshot) string {
	var b [config.NumAxes]byte
	for a := config.Axis(0); a < config.NumAxes; a++ {
		if s.Homed[a] {
			b[a] = a.Name()
		} else {
			b[a] = '?'
		}
	}
	return string(b[:])
}
