package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"lautenbacher.net/fpgaspi/bus"
	"lautenbacher.net/fpgaspi/config"
	"lautenbacher.net/fpgaspi/hardware"
	"lautenbacher.net/fpgaspi/logging"
	"lautenbacher.net/fpgaspi/recipe"
	"lautenbacher.net/fpgaspi/sim"
	"lautenbacher.net/fpgaspi/tui"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Run failed", "error", err)
		logging.Close()
		os.Exit(1)
	}
	logging.Close()
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "fpgaspi"
	app.Usage = "reset an FPGA and run operations on its SPI register bus"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the config file",
			Value: config.CONFILE,
		},
		cli.BoolFlag{
			Name:  "sim",
			Usage: "Run against the simulated FPGA instead of real hardware",
		},
		cli.BoolFlag{
			Name:  "tui",
			Usage: "Show the transaction trace in a terminal UI after the run",
		},
		cli.BoolFlag{
			Name:  "trace",
			Usage: "Print the transaction trace after the run",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "arith",
			Usage: "write two float operands and an opcode, read the FPU result",
			Flags: []cli.Flag{
				cli.Float64Flag{Name: "a", Value: 1.1, Usage: "operand A"},
				cli.Float64Flag{Name: "b", Value: 2.3, Usage: "operand B"},
				cli.StringFlag{Name: "op", Value: "add", Usage: "operation: " + strings.Join(recipe.OpcodeNames(), ", ")},
			},
			Action: func(c *cli.Context) error {
				op, err := recipe.ParseOpcode(c.String("op"))
				if err != nil {
					return err
				}
				r := recipe.Arithmetic{A: float32(c.Float64("a")), B: float32(c.Float64("b")), Op: op}
				return withSession(c, func(s *session) error { return s.run(r) })
			},
		},
		{
			Name:  "gcd",
			Usage: "write two unsigned operands, read their greatest common divisor",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "a", Value: 48, Usage: "operand A"},
				cli.Uint64Flag{Name: "b", Value: 18, Usage: "operand B"},
			},
			Action: func(c *cli.Context) error {
				a, b := c.Uint64("a"), c.Uint64("b")
				if a > 0xFFFFFFFF || b > 0xFFFFFFFF {
					return errors.New("gcd operands must fit in 32 bits")
				}
				r := recipe.GCD{A: uint32(a), B: uint32(b)}
				return withSession(c, func(s *session) error { return s.run(r) })
			},
		},
		{
			Name:      "run",
			Usage:     "execute the steps of a recipe file",
			ArgsUsage: "<recipe file>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "watch", Usage: "run again whenever the file changes"},
			},
			Action: runRecipeFile,
		},
	}
	return app
}

// session is one acquisition of the bus for a command.
type session struct {
	client   *bus.Client
	regs     recipe.RegisterMap
	recorder *hardware.Recorder
	out      io.Writer
	outcomes []recipe.Outcome
}

func (s *session) run(recipes ...recipe.Recipe) error {
	outcomes, err := recipe.RunAll(s.client, s.regs, recipes...)
	s.outcomes = append(s.outcomes, outcomes...)
	var errs []error
	for _, o := range outcomes {
		mark := "ok"
		if !o.Match {
			mark = "MISMATCH"
		}
		fmt.Fprintf(s.out, "%-24s = %-14s expected %-14s raw % x  %s\n", o.Name, o.Got, o.Expected, o.Raw, mark)
		errs = append(errs, o.Check())
	}
	errs = append(errs, err)
	return errors.Join(errs...)
}

// withSession loads the configuration, acquires the bus, calls fn and
// releases the bus on every path.
func withSession(c *cli.Context, fn func(*session) error) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Options{
		Level:   conf.Logging.Level,
		Format:  conf.Logging.Format,
		File:    conf.Logging.File,
		Console: c.App.ErrWriter,
	}); err != nil {
		return fmt.Errorf("can't init logging: %w", err)
	}

	s, err := openSession(conf, c.GlobalBool("sim"))
	if err != nil {
		return err
	}
	s.out = c.App.Writer
	defer func() {
		if err := s.client.Close(); err != nil {
			slog.Error("Error releasing bus", "error", err)
		}
	}()

	runErr := fn(s)

	if c.GlobalBool("trace") {
		for _, e := range s.recorder.Events() {
			fmt.Fprintf(s.out, "%s  %s\n", e.Time.Format("15:04:05.000"), e)
		}
	}
	if c.GlobalBool("tui") {
		logging.Hold()
		if err := tui.NewTraceViewer(s.recorder.Events(), s.outcomes).Run(); err != nil {
			slog.Error("Error running trace viewer", "error", err)
		}
		logging.Release()
	}
	return runErr
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.GlobalString("config")
	conf, err := config.ReadConfig(path)
	if err == nil {
		return conf, nil
	}
	if !c.GlobalIsSet("config") && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}

func openSession(conf *config.Config, simulate bool) (*session, error) {
	var dev hardware.Device
	if simulate {
		design, err := sim.ParseDesign(conf.Simulator.Design)
		if err != nil {
			return nil, err
		}
		slog.Info("Using simulated FPGA", "design", design)
		dev = sim.New(design, registers(conf.Registers))
	} else {
		var err error
		if dev, err = hardware.Open(conf.Hardware); err != nil {
			return nil, err
		}
	}
	rec := hardware.NewRecorder(dev, dev, hardware.DefaultHistory)
	return &session{
		client:   bus.NewClient(rec, rec, conf.Timing.Bus()),
		regs:     registers(conf.Registers),
		recorder: rec,
	}, nil
}

func registers(r config.RegisterConfig) recipe.RegisterMap {
	return recipe.RegisterMap{A: r.OperandA, B: r.OperandB, Command: r.Command, Result: r.Result}
}

func runRecipeFile(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelp(c, "run")
		return errors.New("no recipe file provided")
	}
	path := c.Args().First()
	recipes, err := recipe.LoadFile(path)
	if err != nil {
		return err
	}
	return withSession(c, func(s *session) error {
		err := s.run(recipes...)
		if !c.Bool("watch") {
			return err
		}
		if err != nil {
			slog.Warn("Run failed, waiting for changes", "error", err)
		}

		stop := make(chan struct{})
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)
		go func() {
			<-sigs
			close(stop)
		}()
		return recipe.Watch(path, func(recipes []recipe.Recipe) {
			if err := s.run(recipes...); err != nil {
				slog.Warn("Run failed, waiting for changes", "error", err)
			}
		}, stop)
	})
}
