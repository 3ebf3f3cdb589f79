package recipe

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// ErrUnsupportedOpcode is returned for opcodes the FPU design doesn't
// implement.
var ErrUnsupportedOpcode = errors.New("unsupported opcode")

// Opcode selects the FPU operation. The values are the wire encoding
// written to the command register.
type Opcode uint32

const (
	Add      Opcode = 1
	Subtract Opcode = 2
	Multiply Opcode = 3
)

var opcodeNames = map[string]Opcode{
	"add": Add,
	"sub": Subtract,
	"mul": Multiply,
}

// OpcodeFromWire validates a raw command register value.
func OpcodeFromWire(v uint32) (Opcode, error) {
	switch op := Opcode(v); op {
	case Add, Subtract, Multiply:
		return op, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedOpcode, v)
}

// ParseOpcode accepts the short names listed by OpcodeNames, the long
// names and the wire values 1-3.
func ParseOpcode(s string) (Opcode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "subtract":
		name = "sub"
	case "multiply":
		name = "mul"
	case "1", "2", "3":
		return Opcode(name[0] - '0'), nil
	}
	if op, ok := opcodeNames[name]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedOpcode, s, strings.Join(OpcodeNames(), ", "))
}

// OpcodeNames returns the accepted short names in sorted order.
func OpcodeNames() []string {
	names := maps.Keys(opcodeNames)
	sort.Strings(names)
	return names
}

// Apply computes the operation in float32 precision.
func (o Opcode) Apply(a, b float32) (float32, error) {
	switch o {
	case Add:
		return a + b, nil
	case Subtract:
		return a - b, nil
	case Multiply:
		return a * b, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedOpcode, uint32(o))
}

// Symbol is the arithmetic operator used in log output.
func (o Opcode) Symbol() string {
	switch o {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	}
	return "?"
}

func (o Opcode) String() string {
	switch o {
	case Add:
		return "add"
	case Subtract:
		return "sub"
	case Multiply:
		return "mul"
	}
	return fmt.Sprintf("opcode(%d)", uint32(o))
}
