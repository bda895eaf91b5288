//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO step generator. The state machine owns the step and direction pins
// and emits one hardware-timed pulse per FIFO word, so pulse width and
// direction setup time are immune to interrupt jitter. Cadence still comes
// from the motion engine, one word per step.
//
// Command word: bit 31 = direction, bits 16-23 = trailing delay cycles,
// bits 0-15 = pulse count (always 1 here).
func buildStepProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),   // x = pulse count
		asm.Out(rp2pio.OutDestY, 8).Encode(),    // y = delay cycles
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // direction pin
		// pulse:
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Encode(),
		// delay:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),
		// .wrap
	}
}

// Jump targets in the program are absolute, so it must load at offset 0.
// One copy serves every state machine on the block.
const stepProgramOrigin = 0

type stepProgram struct {
	pio    *rp2pio.PIO
	offset uint8
	length uint8
}

func loadStepProgram(pio *rp2pio.PIO) (*stepProgram, error) {
	program := buildStepProgram()
	offset, err := pio.AddProgram(program, stepProgramOrigin)
	if err != nil {
		return nil, err
	}
	return &stepProgram{pio: pio, offset: offset, length: uint8(len(program))}, nil
}

type pioStepper struct {
	pio       *rp2pio.PIO
	sm        rp2pio.StateMachine
	stepPin   machine.Pin
	dirPin    machine.Pin
	enablePin machine.Pin
	invertDir bool
	forward   bool
}

func newPIOStepper(prog *stepProgram, smNum uint8, step, dir, enable machine.Pin, invertDir bool) *pioStepper {
	s := &pioStepper{
		pio:       prog.pio,
		sm:        prog.pio.StateMachine(smNum),
		stepPin:   step,
		dirPin:    dir,
		enablePin: enable,
		invertDir: invertDir,
	}
	s.enablePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.enablePin.High()

	s.sm.TryClaim()
	s.stepPin.Configure(machine.PinConfig{Mode: prog.pio.PinMode()})
	s.dirPin.Configure(machine.PinConfig{Mode: prog.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(s.stepPin, 1)
	cfg.SetOutPins(s.dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(prog.offset+prog.length-1, prog.offset)
	cfg.SetClkDivIntFrac(1000, 0)

	s.sm.Init(prog.offset, cfg)
	s.sm.SetPindirsConsecutive(s.stepPin, 1, true)
	s.sm.SetPindirsConsecutive(s.dirPin, 1, true)
	s.sm.SetPinsConsecutive(s.stepPin, 1, false)
	s.sm.SetPinsConsecutive(s.dirPin, 1, false)
	s.sm.SetEnabled(true)
	return s
}

func (s *pioStepper) Step() {
	cmd := uint32(1) | (1 << 16) // one pulse, minimal trailing delay
	if s.forward != s.invertDir {
		cmd |= 1 << 31
	}
	for s.sm.IsTxFIFOFull() {
	}
	s.sm.TxPut(cmd)
}

func (s *pioStepper) SetDirection(forward bool) {
	s.forward = forward
}

func (s *pioStepper) Enable()  { s.enablePin.Low() }
func (s *pioStepper) Disable() { s.enablePin.High() }
