// Package serial opens the plotter's USB CDC port for host-side tools.
// The Port interface keeps the streaming code testable against an
// in-memory implementation.
package serial

import (
	"io"
)

// Port is one open connection to the firmware.
type Port interface {
	io.ReadWriteCloser

	// Flush drops buffered data so a fresh session does not replay stale
	// firmware output.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate. USB CDC ignores it, but real UART adapters do not.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the settings the firmware ships with.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
