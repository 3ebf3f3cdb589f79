// Package hardware opens the SPI bus and the FPGA reset line on a
// Raspberry Pi, either through periph.io or through go-rpio.
package hardware

import (
	"fmt"
	"io"
	"log/slog"

	"lautenbacher.net/fpgaspi/bus"
	"lautenbacher.net/fpgaspi/config"
)

// Device is a bus transport and reset line opened together. Close
// releases both.
type Device interface {
	bus.Transport
	bus.Line
	io.Closer
}

// Open acquires the SPI bus and the reset line configured in cfg. On
// error nothing stays acquired.
func Open(cfg config.HardwareConfig) (Device, error) {
	slog.Info("Initialise GPIO and SPI...", "library", cfg.GPIOLibrary, "device", cfg.SPIDevice,
		"frequency", cfg.SPIFrequency, "resetPin", cfg.ResetPin)
	var (
		dev Device
		err error
	)
	switch cfg.GPIOLibrary {
	case config.LibraryPeriph:
		dev, err = openPeriph(cfg)
	case config.LibraryRpio:
		dev, err = openRpio(cfg)
	default:
		err = fmt.Errorf("%w: unknown GPIO library %q", bus.ErrBusTransport, cfg.GPIOLibrary)
	}
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
