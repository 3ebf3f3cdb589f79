package bus

import "errors"

var (
	// ErrBusTransport is returned when the transport or the reset line
	// can't complete an operation.
	ErrBusTransport = errors.New("bus transport error")

	// ErrInvalidRegisterIndex is returned for register indices outside
	// 0..127. No bus activity happens in that case.
	ErrInvalidRegisterIndex = errors.New("invalid register index")

	// ErrProtocolFraming is returned when a reply doesn't have the
	// length of a frame.
	ErrProtocolFraming = errors.New("protocol framing error")

	// ErrNotReady is returned for transactions issued before the first
	// reset pulse completed.
	ErrNotReady = errors.New("bus not ready, reset pending")
)
