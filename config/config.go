package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"lautenbacher.net/fpgaspi/bus"
)

const CONFILE = "config.yml"

const (
	LibraryPeriph = "periph.io"
	LibraryRpio   = "rpio"
)

type Config struct {
	Hardware  HardwareConfig `yaml:"Hardware"`
	Timing    TimingConfig   `yaml:"Timing"`
	Registers RegisterConfig `yaml:"Registers"`
	Simulator SimConfig      `yaml:"Simulator"`
	Logging   LoggingConfig  `yaml:"Logging"`
}

type HardwareConfig struct {
	GPIOLibrary  string `yaml:"GPIOLibrary"`
	ResetPin     int    `yaml:"ResetPin"`
	SPIDevice    string `yaml:"SPIDevice"`
	SPIFrequency int    `yaml:"SPIFrequency"`
	SPIMode      int    `yaml:"SPIMode"`
}

type TimingConfig struct {
	ResetAssert      time.Duration `yaml:"ResetAssert"`
	ResetRelease     time.Duration `yaml:"ResetRelease"`
	PostWriteSettle  time.Duration `yaml:"PostWriteSettle"`
	PreCommandSettle time.Duration `yaml:"PreCommandSettle"`
}

// Bus converts the timing section to the bus client representation.
func (t TimingConfig) Bus() bus.Timing {
	return bus.Timing{
		ResetAssert:      t.ResetAssert,
		ResetRelease:     t.ResetRelease,
		PostWriteSettle:  t.PostWriteSettle,
		PreCommandSettle: t.PreCommandSettle,
	}
}

type RegisterConfig struct {
	OperandA int `yaml:"OperandA"`
	OperandB int `yaml:"OperandB"`
	Command  int `yaml:"Command"`
	Result   int `yaml:"Result"`
}

type SimConfig struct {
	// Design is either "fpu" or "gcd".
	Design string `yaml:"Design"`
}

type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// Default returns the configuration used when no config file exists:
// the reset line on GPIO19 and the FPU design on /dev/spidev0.0.
func Default() *Config {
	t := bus.DefaultTiming()
	return &Config{
		Hardware: HardwareConfig{
			GPIOLibrary:  LibraryPeriph,
			ResetPin:     19,
			SPIDevice:    "/dev/spidev0.0",
			SPIFrequency: 500000,
			SPIMode:      0,
		},
		Timing: TimingConfig{
			ResetAssert:      t.ResetAssert,
			ResetRelease:     t.ResetRelease,
			PostWriteSettle:  t.PostWriteSettle,
			PreCommandSettle: t.PreCommandSettle,
		},
		Registers: RegisterConfig{OperandA: 0, OperandB: 1, Command: 2, Result: 3},
		Simulator: SimConfig{Design: "fpu"},
		Logging:   LoggingConfig{Level: "INFO", Format: "text"},
	}
}

// ReadConfig reads cfile on top of the defaults and validates the result.
func ReadConfig(cfile string) (*Config, error) {
	conf := Default()
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

// Validate checks the configuration for values the hardware layer and
// the bus client can't work with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Hardware.GPIOLibrary {
	case LibraryPeriph, LibraryRpio:
	default:
		errs = append(errs, fmt.Errorf("Hardware.GPIOLibrary must be %q or %q, got %q",
			LibraryPeriph, LibraryRpio, c.Hardware.GPIOLibrary))
	}
	if c.Hardware.ResetPin < 0 || c.Hardware.ResetPin > 27 {
		errs = append(errs, fmt.Errorf("Hardware.ResetPin must be between 0 and 27, got %d", c.Hardware.ResetPin))
	}
	if c.Hardware.SPIFrequency <= 0 {
		errs = append(errs, fmt.Errorf("Hardware.SPIFrequency must be positive, got %d", c.Hardware.SPIFrequency))
	}
	if c.Hardware.SPIMode < 0 || c.Hardware.SPIMode > 3 {
		errs = append(errs, fmt.Errorf("Hardware.SPIMode must be between 0 and 3, got %d", c.Hardware.SPIMode))
	}
	if c.Hardware.GPIOLibrary == LibraryPeriph && c.Hardware.SPIDevice == "" {
		errs = append(errs, errors.New("Hardware.SPIDevice is required for periph.io"))
	}

	durations := map[string]time.Duration{
		"ResetAssert":      c.Timing.ResetAssert,
		"ResetRelease":     c.Timing.ResetRelease,
		"PostWriteSettle":  c.Timing.PostWriteSettle,
		"PreCommandSettle": c.Timing.PreCommandSettle,
	}
	for _, name := range []string{"ResetAssert", "ResetRelease", "PostWriteSettle", "PreCommandSettle"} {
		if durations[name] < 0 {
			errs = append(errs, fmt.Errorf("Timing.%s must not be negative, got %s", name, durations[name]))
		}
	}

	regs := map[string]int{
		"OperandA": c.Registers.OperandA,
		"OperandB": c.Registers.OperandB,
		"Command":  c.Registers.Command,
		"Result":   c.Registers.Result,
	}
	for _, name := range []string{"OperandA", "OperandB", "Command", "Result"} {
		if regs[name] < 0 || regs[name] > bus.MaxRegisterIndex {
			errs = append(errs, fmt.Errorf("Registers.%s must be between 0 and %d, got %d",
				name, bus.MaxRegisterIndex, regs[name]))
		}
	}
	if c.Registers.OperandA == c.Registers.OperandB || c.Registers.OperandA == c.Registers.Command ||
		c.Registers.OperandB == c.Registers.Command {
		errs = append(errs, errors.New("Registers.OperandA, OperandB and Command must be distinct"))
	}

	switch strings.ToLower(c.Simulator.Design) {
	case "fpu", "gcd":
	default:
		errs = append(errs, fmt.Errorf("Simulator.Design must be \"fpu\" or \"gcd\", got %q", c.Simulator.Design))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("Logging.Format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
