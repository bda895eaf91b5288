// Package control ties the decoder, queue, motion engine and homing into
// the firmware's command executor, and owns the serial reply protocol.
package control

// ErrorCode is the numeric error class sent on the serial line. The values
// are part of the wire protocol; never renumber.
type ErrorCode uint8

const (
	ErrNone ErrorCode = iota
	ErrUnknownCommand
	ErrInvalidSyntax
	ErrOutOfRange
	ErrEndstopHit
	ErrHomingFailed
	ErrNotHomed
	ErrBufferOverflow
	ErrTimeout
	ErrEmptyCommand
)
