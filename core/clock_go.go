//go:build !tinygo

package core

// Simulated clock for host builds and tests. The motion loops only make
// progress when something advances it, normally the tick hook of the loop
// under test.

var simMicros uint64

func getMicros64() uint64 {
	return simMicros
}

// SetMicros sets the simulated clock (testing/host integration).
func SetMicros(us uint64) {
	simMicros = us
}

// AdvanceMicros advances the simulated clock (testing/host integration).
func AdvanceMicros(us uint32) {
	simMicros += uint64(us)
}

// DelayMicros advances the simulated clock; nothing actually sleeps.
func DelayMicros(us uint32) {
	simMicros += uint64(us)
}
