//go:build rp2040

package main

import "machine"

// Pin map for the RP2040 plotter controller board.
const (
	pinStepX = machine.GP2
	pinDirX  = machine.GP3
	pinStepY = machine.GP4
	pinDirY  = machine.GP5
	pinStepZ = machine.GP6
	pinDirZ  = machine.GP7

	// All three drivers share one active-low enable line.
	pinEnable = machine.GP8

	pinBuzzer = machine.GP9 // PWM slice 4

	// SD card on SPI1
	pinSDSck = machine.GP10
	pinSDTx  = machine.GP11
	pinSDRx  = machine.GP12
	pinSDCs  = machine.GP13

	pinEndstopX = machine.GP14
	pinEndstopY = machine.GP15
	pinEndstopZ = machine.GP16

	pinEncoderA   = machine.GP17
	pinEncoderB   = machine.GP18
	pinEncoderBtn = machine.GP19

	// HD44780 in 4-bit mode, RW strapped to ground
	pinLCDRS = machine.GP20
	pinLCDEN = machine.GP21
	pinLCDD4 = machine.GP22
	pinLCDD5 = machine.GP23
	pinLCDD6 = machine.GP24
	pinLCDD7 = machine.GP25

	pinSpeedPot = machine.GP26 // ADC0
)
