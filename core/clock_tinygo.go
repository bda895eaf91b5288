//go:build tinygo

package core

import "time"

var bootTime = time.Now()

func getMicros64() uint64 {
	return uint64(time.Since(bootTime).Microseconds())
}

// DelayMicros blocks for the given number of microseconds.
func DelayMicros(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
