package hardware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stianeikeland/go-rpio/v4"
	"lautenbacher.net/fpgaspi/bus"
	"lautenbacher.net/fpgaspi/config"
)

type RpioDevice struct {
	pin    rpio.Pin
	opened bool
}

func openRpio(cfg config.HardwareConfig) (*RpioDevice, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("%w: failed to open rpio: %v", bus.ErrBusTransport, err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("%w: failed to begin spi: %v", bus.ErrBusTransport, err)
	}
	rpio.SpiSpeed(cfg.SPIFrequency)
	rpio.SpiChipSelect(chipSelect(cfg.SPIDevice))
	rpio.SpiMode(uint8(cfg.SPIMode>>1), uint8(cfg.SPIMode&1))

	pin := rpio.Pin(cfg.ResetPin)
	pin.Output()
	pin.Low()
	return &RpioDevice{pin: pin, opened: true}, nil
}

// chipSelect derives the chip select from a /dev/spidev0.N name.
func chipSelect(device string) uint8 {
	if strings.HasSuffix(device, ".1") {
		return 1
	}
	return 0
}

// Transfer exchanges a copy of out; go-rpio overwrites the buffer it
// is given with the received bytes.
func (d *RpioDevice) Transfer(out []byte) ([]byte, error) {
	if !d.opened {
		return nil, errors.New("rpio device closed")
	}
	buf := make([]byte, len(out))
	copy(buf, out)
	rpio.SpiExchange(buf)
	return buf, nil
}

func (d *RpioDevice) SetLevel(high bool) error {
	if !d.opened {
		return errors.New("rpio device closed")
	}
	if high {
		d.pin.High()
	} else {
		d.pin.Low()
	}
	return nil
}

func (d *RpioDevice) Close() error {
	if !d.opened {
		return nil
	}
	d.opened = false
	d.pin.Low()
	d.pin.Input()
	rpio.SpiEnd(rpio.Spi0)
	return rpio.Close()
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
