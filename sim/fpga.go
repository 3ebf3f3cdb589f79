// Package sim models the two FPGA designs behind the register bus so
// recipes can run without hardware.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"lautenbacher.net/fpgaspi/bus"
	"lautenbacher.net/fpgaspi/recipe"
)

type Design int

const (
	FPU Design = iota
	GCD
)

// ParseDesign accepts "fpu" and "gcd".
func ParseDesign(s string) (Design, error) {
	switch strings.ToLower(s) {
	case "fpu":
		return FPU, nil
	case "gcd":
		return GCD, nil
	}
	return 0, fmt.Errorf("unknown design %q", s)
}

func (d Design) String() string {
	if d == GCD {
		return "gcd"
	}
	return "fpu"
}

// Status is the first byte of every read reply.
const (
	StatusIdle  byte = 0x00
	StatusDone  byte = 0x01
	StatusError byte = 0xEE
)

var (
	ErrInReset  = errors.New("peripheral held in reset")
	ErrBadFrame = errors.New("malformed frame")
	ErrClosed   = errors.New("device closed")
)

// FPGA is a register file behind a bus.Transport and bus.Line. A write
// to the command register computes the result register.
type FPGA struct {
	mu     sync.Mutex
	design Design
	regs   recipe.RegisterMap
	file   map[int][bus.PayloadSize]byte
	status byte
	reset  bool
	closed bool
	resets int
}

func New(design Design, regs recipe.RegisterMap) *FPGA {
	return &FPGA{
		design: design,
		regs:   regs,
		file:   make(map[int][bus.PayloadSize]byte),
	}
}

// SetLevel drives the reset input. Asserting it clears all registers.
func (f *FPGA) SetLevel(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if high && !f.reset {
		f.resets++
		clear(f.file)
		f.status = StatusIdle
	}
	f.reset = high
	return nil
}

func (f *FPGA) Transfer(out []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if f.reset {
		return nil, ErrInReset
	}
	if len(out) != bus.FrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(out))
	}

	in := make([]byte, bus.FrameSize)
	switch {
	case out[0]&0x80 != 0:
		index := int(out[0] & bus.MaxRegisterIndex)
		var payload [bus.PayloadSize]byte
		copy(payload[:], out[1:])
		f.file[index] = payload
		if index == f.regs.Command {
			f.execute(bus.DecodeUint32BE(payload))
		}
	case out[0] == 0x03:
		result := f.file[f.regs.Result]
		in[0] = f.status
		copy(in[1:], result[:])
	default:
		return nil, fmt.Errorf("%w: header 0x%02x", ErrBadFrame, out[0])
	}
	return in, nil
}

func (f *FPGA) execute(command uint32) {
	a, b := f.file[f.regs.A], f.file[f.regs.B]
	var result [bus.PayloadSize]byte
	f.status = StatusDone

	switch f.design {
	case FPU:
		op, err := recipe.OpcodeFromWire(command)
		if err != nil {
			slog.Warn("Simulated FPU rejected command", "error", err)
			f.status = StatusError
			break
		}
		v, _ := op.Apply(bus.DecodeFloat32BE(a), bus.DecodeFloat32BE(b))
		result = bus.EncodeFloat32BE(v)
	case GCD:
		if command != recipe.GCDStart {
			f.status = StatusError
			break
		}
		x := new(big.Int).SetUint64(uint64(bus.DecodeUint32BE(a)))
		y := new(big.Int).SetUint64(uint64(bus.DecodeUint32BE(b)))
		result = bus.EncodeUint32BE(uint32(new(big.Int).GCD(nil, nil, x, y).Uint64()))
	}
	f.file[f.regs.Result] = result
}

// Register returns the current content of a register slot.
func (f *FPGA) Register(index int) [bus.PayloadSize]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file[index]
}

// Resets returns the number of reset pulses seen.
func (f *FPGA) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// InReset reports whether the reset input is asserted.
func (f *FPGA) InReset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reset
}

func (f *FPGA) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
