package bus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"
)

const (
	// FrameSize is the length of every frame sent or received.
	FrameSize = 5
	// PayloadSize is the length of a register value on the wire.
	PayloadSize = 4
	// MaxRegisterIndex is the highest index encodable in a write header.
	MaxRegisterIndex = 0x7F

	writeFlag  = 0x80
	readOpcode = 0x03
)

// Transport is a synchronous half-duplex bus. Transfer clocks out all
// bytes of out and returns the bytes clocked in at the same time.
type Transport interface {
	Transfer(out []byte) ([]byte, error)
}

// Line is the digital output driving the peripheral reset input.
type Line interface {
	SetLevel(high bool) error
}

// Timing holds the dwell and settle intervals of the protocol. Zero
// durations are not slept at all.
type Timing struct {
	ResetAssert      time.Duration
	ResetRelease     time.Duration
	PostWriteSettle  time.Duration
	PreCommandSettle time.Duration
}

// DefaultTiming returns the conservative intervals the FPGA designs
// were brought up with.
func DefaultTiming() Timing {
	return Timing{
		ResetAssert:      100 * time.Millisecond,
		ResetRelease:     100 * time.Millisecond,
		PostWriteSettle:  50 * time.Millisecond,
		PreCommandSettle: 100 * time.Millisecond,
	}
}

// Client performs register indexed transactions with a peripheral and
// controls its reset line. A Client owns both collaborators and is not
// safe for concurrent use: the bus has no arbitration.
type Client struct {
	transport Transport
	line      Line
	timing    Timing
	ready     bool
	closed    bool
	sleep     func(time.Duration)
}

// NewClient returns a client in the unreset state. Reset must be called
// before the first transaction.
func NewClient(transport Transport, line Line, timing Timing) *Client {
	return &Client{
		transport: transport,
		line:      line,
		timing:    timing,
		sleep:     time.Sleep,
	}
}

// Ready reports whether a reset pulse has completed.
func (c *Client) Ready() bool {
	return c.ready
}

// Reset drives the reset line high then low, holding each level for
// the configured dwell.
func (c *Client) Reset() error {
	c.ready = false
	slog.Debug("Reset pulse", "assert", c.timing.ResetAssert, "release", c.timing.ResetRelease)
	if err := c.line.SetLevel(true); err != nil {
		return fmt.Errorf("%w: assert reset: %v", ErrBusTransport, err)
	}
	c.wait(c.timing.ResetAssert)
	if err := c.line.SetLevel(false); err != nil {
		return fmt.Errorf("%w: release reset: %v", ErrBusTransport, err)
	}
	c.wait(c.timing.ResetRelease)
	c.ready = true
	return nil
}

// WriteRegister sends payload to the register at index and waits for
// the post-write settle interval. index must be in 0..MaxRegisterIndex.
func (c *Client) WriteRegister(index int, payload [PayloadSize]byte) error {
	return c.write(index, payload, c.timing.PostWriteSettle)
}

// WriteCommand is WriteRegister for the register that starts an
// operation. It waits for the longer pre-command settle so the result
// is latched before the next read.
func (c *Client) WriteCommand(index int, payload [PayloadSize]byte) error {
	return c.write(index, payload, c.timing.PreCommandSettle)
}

func (c *Client) write(index int, payload [PayloadSize]byte, settle time.Duration) error {
	if err := c.check(index); err != nil {
		return err
	}
	frame := WriteFrame(index, payload)
	slog.Debug("Write register", "index", index, "frame", frame)
	if _, err := c.transport.Transfer(frame); err != nil {
		return fmt.Errorf("%w: write register %d: %v", ErrBusTransport, index, err)
	}
	c.wait(settle)
	return nil
}

// ReadRegister returns the payload of the peripheral result register.
//
// The read request carries no register index: the peripheral always
// answers with its result register. index is validated and logged only.
func (c *Client) ReadRegister(index int) ([PayloadSize]byte, error) {
	var payload [PayloadSize]byte
	if err := c.check(index); err != nil {
		return payload, err
	}
	reply, err := c.transport.Transfer(ReadFrame())
	if err != nil {
		return payload, fmt.Errorf("%w: read register %d: %v", ErrBusTransport, index, err)
	}
	if len(reply) != FrameSize {
		return payload, fmt.Errorf("%w: read register %d: got %d reply bytes, want %d",
			ErrProtocolFraming, index, len(reply), FrameSize)
	}
	copy(payload[:], reply[1:])
	slog.Debug("Read register", "index", index, "status", reply[0], "payload", payload)
	return payload, nil
}

// Run brackets fn between two reset pulses. The closing reset is issued
// even when fn fails so the peripheral is never left mid-sequence.
func (c *Client) Run(fn func(*Client) error) error {
	if err := c.Reset(); err != nil {
		return err
	}
	runErr := fn(c)
	if err := c.Reset(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Close releases the transport and the reset line if they implement
// io.Closer. Calling Close more than once is a no-op.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.ready = false
	var errs []error
	if cl, ok := c.transport.(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	if cl, ok := c.line.(io.Closer); ok && !SameDevice(c.line, c.transport) {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// SameDevice reports whether a transport and a line are one value, as
// for devices implementing both. Values of uncomparable types are never
// reported as the same.
func SameDevice(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return va.Equal(vb)
}

func (c *Client) check(index int) error {
	if index < 0 || index > MaxRegisterIndex {
		return fmt.Errorf("%w: %d", ErrInvalidRegisterIndex, index)
	}
	if !c.ready {
		return ErrNotReady
	}
	return nil
}

func (c *Client) wait(d time.Duration) {
	if d > 0 {
		c.sleep(d)
	}
}

// WriteFrame builds the frame writing payload to index. Only the low
// seven bits of index are used; the client rejects anything outside
// 0..MaxRegisterIndex before building a frame.
func WriteFrame(index int, payload [PayloadSize]byte) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = writeFlag | byte(index&MaxRegisterIndex)
	copy(frame[1:], payload[:])
	return frame
}

// ReadFrame returns the fixed result read request.
func ReadFrame() []byte {
	return []byte{readOpcode, 0x00, 0x00, 0x00, 0x00}
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
