package hardware

import (
	"errors"
	"fmt"
	"log/slog"

	"lautenbacher.net/fpgaspi/bus"
	"lautenbacher.net/fpgaspi/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type PeriphDevice struct {
	port spi.PortCloser
	conn spi.Conn
	pin  gpio.PinIO
}

func openPeriph(cfg config.HardwareConfig) (*PeriphDevice, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to init periph: %v", bus.ErrBusTransport, err)
	}

	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", cfg.ResetPin))
	if pin == nil {
		return nil, fmt.Errorf("%w: failed to find pin %d", bus.ErrBusTransport, cfg.ResetPin)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%w: failed to set pin %d to output: %v", bus.ErrBusTransport, cfg.ResetPin, err)
	}

	port, err := spireg.Open(cfg.SPIDevice)
	if err != nil {
		pin.Halt()
		return nil, fmt.Errorf("%w: failed to open spi %s: %v", bus.ErrBusTransport, cfg.SPIDevice, err)
	}
	conn, err := port.Connect(physic.Frequency(cfg.SPIFrequency)*physic.Hertz, spi.Mode(cfg.SPIMode), 8)
	if err != nil {
		port.Close()
		pin.Halt()
		return nil, fmt.Errorf("%w: failed to connect to spi device: %v", bus.ErrBusTransport, err)
	}
	return &PeriphDevice{port: port, conn: conn, pin: pin}, nil
}

func (d *PeriphDevice) Transfer(out []byte) ([]byte, error) {
	read := make([]byte, len(out))
	if err := d.conn.Tx(out, read); err != nil {
		return nil, err
	}
	return read, nil
}

func (d *PeriphDevice) SetLevel(high bool) error {
	return d.pin.Out(gpio.Level(high))
}

// Close drives the reset line low before releasing it so the FPGA is
// never left in reset.
func (d *PeriphDevice) Close() error {
	var errs []error
	if d.pin != nil {
		errs = append(errs, d.pin.Out(gpio.Low), d.pin.Halt())
		d.pin = nil
	}
	if d.port != nil {
		if err := d.port.Close(); err != nil {
			slog.Error("Error closing spi port", "error", err)
			errs = append(errs, err)
		}
		d.port = nil
	}
	return errors.Join(errs...)
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
