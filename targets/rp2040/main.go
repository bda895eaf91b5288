//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"plotter/config"
	"plotter/control"
	"plotter/core"
	"plotter/motion"
)

const watchdogTimeoutMS = 5000

func main() {
	machine.Serial.Configure(machine.UARTConfig{})

	cfg := config.Default()

	// PIO step generation when the program loads, plain GPIO otherwise.
	var ports [config.NumAxes]core.StepPort
	if prog, err := loadStepProgram(rp2pio.PIO0); err == nil {
		ports[config.X] = newPIOStepper(prog, 0, pinStepX, pinDirX, pinEnable, cfg.Axes[config.X].InvertDir)
		ports[config.Y] = newPIOStepper(prog, 1, pinStepY, pinDirY, pinEnable, cfg.Axes[config.Y].InvertDir)
		ports[config.Z] = newPIOStepper(prog, 2, pinStepZ, pinDirZ, pinEnable, cfg.Axes[config.Z].InvertDir)
	} else {
		ports[config.X] = newGPIOStepper(pinStepX, pinDirX, pinEnable, cfg.Axes[config.X].InvertDir)
		ports[config.Y] = newGPIOStepper(pinStepY, pinDirY, pinEnable, cfg.Axes[config.Y].InvertDir)
		ports[config.Z] = newGPIOStepper(pinStepZ, pinDirZ, pinEnable, cfg.Axes[config.Z].InvertDir)
	}

	var stops [config.NumAxes]core.EndstopPort
	stops[config.X] = newEndstopPin(pinEndstopX, cfg.Endstops[config.X])
	stops[config.Y] = newEndstopPin(pinEndstopY, cfg.Endstops[config.Y])
	stops[config.Z] = newEndstopPin(pinEndstopZ, cfg.Endstops[config.Z])

	var wdt core.Watchdog
	if hw, err := startWatchdog(watchdogTimeoutMS); err == nil {
		wdt = hw
	} else {
		wdt = core.NopWatchdog{}
	}

	engine := motion.NewEngine(cfg, ports, wdt)
	endstops := motion.NewEndstops(cfg, stops)
	homing := motion.NewHoming(cfg, engine, endstops)

	out := control.NewResponder(machine.Serial)
	ctl := control.NewController(cfg, engine, homing, endstops, out)

	display := newStatusDisplay()
	engine.Refresh = func() { display.render(ctl.Snapshot()) }

	bz := newBuzzer()
	ctl.Notify = bz.signal

	pot := newPotReader(pinSpeedPot, cfg)
	panel := newPanelEncoder()

	out.Info(config.FirmwareName + " " + config.FirmwareVersion + " ready")
	bz.signal(control.EventStartup)

	lastDisplay := core.Millis()
	for {
		wdt.Reset()

		for machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				break
			}
			ctl.ProcessByte(b)
		}

		pot.poll(ctl)
		panel.poll(ctl)
		ctl.RunOnce()

		if now := core.Millis(); now-lastDisplay >= 250 {
			lastDisplay = now
			display.render(ctl.Snapshot())
		}
	}
}
