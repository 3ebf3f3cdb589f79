package recipe

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"lautenbacher.net/fpgaspi/bus"
)

// ErrMismatch is returned by Check when the peripheral result differs
// from the host side expectation.
var ErrMismatch = errors.New("result mismatch")

// Tolerance is the accepted absolute error of FPU results.
const Tolerance = 1e-6

// GCDStart is the command value that starts the GCD design.
const GCDStart uint32 = 1

// RegisterMap names the register slots used by both FPGA designs.
type RegisterMap struct {
	A       int
	B       int
	Command int
	Result  int
}

// DefaultRegisters is the map of the reference designs: operands at 0
// and 1 (byte addresses 0x400, 0x404), command at 2 (0x408) and the
// read only result at 3 (0x40C).
var DefaultRegisters = RegisterMap{A: 0, B: 1, Command: 2, Result: 3}

// Recipe describes one operand/command/result sequence on the bus.
type Recipe interface {
	Name() string
	Execute(c *bus.Client, regs RegisterMap) (Outcome, error)
}

// Outcome is the result read back from the peripheral together with
// the value computed on the host.
type Outcome struct {
	Name     string
	Raw      [bus.PayloadSize]byte
	Got      string
	Expected string
	Match    bool
}

// Check returns ErrMismatch if the outcome doesn't match.
func (o Outcome) Check() error {
	if o.Match {
		return nil
	}
	return fmt.Errorf("%w: %s got %s, expected %s", ErrMismatch, o.Name, o.Got, o.Expected)
}

// Arithmetic runs one operation on the FPU design.
type Arithmetic struct {
	A, B float32
	Op   Opcode
}

func (r Arithmetic) Name() string {
	return fmt.Sprintf("%g %s %g", r.A, r.Op.Symbol(), r.B)
}

// Expected is the host side float32 result.
func (r Arithmetic) Expected() (float32, error) {
	return r.Op.Apply(r.A, r.B)
}

func (r Arithmetic) Execute(c *bus.Client, regs RegisterMap) (Outcome, error) {
	expected, err := r.Expected()
	if err != nil {
		return Outcome{}, err
	}
	if err := writeOperands(c, regs, bus.EncodeFloat32BE(r.A), bus.EncodeFloat32BE(r.B)); err != nil {
		return Outcome{}, err
	}
	slog.Info("Send command", "op", r.Op.String(), "register", regs.Command)
	if err := c.WriteCommand(regs.Command, bus.EncodeUint32BE(uint32(r.Op))); err != nil {
		return Outcome{}, err
	}
	raw, err := c.ReadRegister(regs.Result)
	if err != nil {
		return Outcome{}, err
	}
	got := bus.DecodeFloat32BE(raw)
	out := Outcome{
		Name:     r.Name(),
		Raw:      raw,
		Got:      fmt.Sprintf("%g", got),
		Expected: fmt.Sprintf("%g", expected),
		Match:    math.Abs(float64(got)-float64(expected)) < Tolerance,
	}
	slog.Info("FPU result", "recipe", out.Name, "raw", raw, "result", got, "expected", expected)
	return out, nil
}

// GCD runs the greatest common divisor design.
type GCD struct {
	A, B uint32
}

func (r GCD) Name() string {
	return fmt.Sprintf("gcd(%d, %d)", r.A, r.B)
}

// Expected is the host side result, computed with math/big.
func (r GCD) Expected() uint32 {
	a := new(big.Int).SetUint64(uint64(r.A))
	b := new(big.Int).SetUint64(uint64(r.B))
	return uint32(new(big.Int).GCD(nil, nil, a, b).Uint64())
}

func (r GCD) Execute(c *bus.Client, regs RegisterMap) (Outcome, error) {
	if err := writeOperands(c, regs, bus.EncodeUint32BE(r.A), bus.EncodeUint32BE(r.B)); err != nil {
		return Outcome{}, err
	}
	slog.Info("Start GCD", "register", regs.Command)
	if err := c.WriteCommand(regs.Command, bus.EncodeUint32BE(GCDStart)); err != nil {
		return Outcome{}, err
	}
	raw, err := c.ReadRegister(regs.Result)
	if err != nil {
		return Outcome{}, err
	}
	got, expected := bus.DecodeUint32BE(raw), r.Expected()
	out := Outcome{
		Name:     r.Name(),
		Raw:      raw,
		Got:      fmt.Sprintf("%d", got),
		Expected: fmt.Sprintf("%d", expected),
		Match:    got == expected,
	}
	slog.Info("GCD result", "recipe", out.Name, "raw", raw, "result", got, "expected", expected)
	return out, nil
}

func writeOperands(c *bus.Client, regs RegisterMap, a, b [bus.PayloadSize]byte) error {
	slog.Info("Write operand A", "register", regs.A, "payload", a)
	if err := c.WriteRegister(regs.A, a); err != nil {
		return err
	}
	slog.Info("Write operand B", "register", regs.B, "payload", b)
	return c.WriteRegister(regs.B, b)
}

// RunAll brackets the recipes between the reset pulses and executes
// them in order. It stops at the first bus error; mismatches are
// reported in the outcomes only.
func RunAll(c *bus.Client, regs RegisterMap, recipes ...Recipe) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(recipes))
	err := c.Run(func(c *bus.Client) error {
		for _, r := range recipes {
			out, err := r.Execute(c, regs)
			if err != nil {
				return fmt.Errorf("%s: %w", r.Name(), err)
			}
			outcomes = append(outcomes, out)
		}
		return nil
	})
	return outcomes, err
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
