package core

// Micros returns the current monotonic time in microseconds, truncated to
// 32 bits. Wraps every ~71 minutes; all comparisons must use unsigned
// subtraction.
func Micros() uint32 {
	return uint32(getMicros64())
}

// Millis returns the current monotonic time in milliseconds, truncated to
// 32 bits. Derived from the 64-bit clock rather than from Micros: dividing
// a wrapped 32-bit micros value would wrap millis at a non-power-of-two,
// breaking unsigned subtraction across the boundary.
func Millis() uint32 {
	return uint32(getMicros64() / 1000)
}

// Since returns the elapsed microseconds from a previous Micros reading,
// correct across counter wrap.
func Since(start uint32) uint32 {
	return Micros() - start
}
