//go:build rp2040

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/tone"

	"plotter/control"
)

// buzzer plays short cues for state transitions. Blocking, but every cue
// is well under the watchdog timeout.
type buzzer struct {
	speaker tone.Speaker
	ok      bool
}

func newBuzzer() *buzzer {
	b := &buzzer{}
	sp, err := tone.New(machine.PWM4, pinBuzzer)
	if err != nil {
		return b
	}
	b.speaker = sp
	b.ok = true
	return b
}

func (b *buzzer) signal(ev control.Event) {
	if !b.ok {
		return
	}
	switch ev {
	case control.EventStartup:
		b.play(tone.C5, tone.E5, tone.G5)
	case control.EventHomingDone:
		b.play(tone.G4, tone.C5)
	case control.EventJobDone:
		b.play(tone.C5, tone.G5, tone.C6)
	case control.EventFault:
		b.play(tone.G3, tone.G3)
	}
}

func (b *buzzer) play(notes ...tone.Note) {
	for _, n := range notes {
		b.speaker.SetNote(n)
		time.Sleep(90 * time.Millisecond)
	}
	b.speaker.Stop()
}
