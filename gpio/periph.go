//go:build !tinygo

package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/baro"
)

var _ baro.ChipSelect = &HostPin{}

// HostPin drives chip-select through a periph.io output pin, for running the
// sensor driver from a Linux board.
type HostPin struct {
	pin gpio.PinOut
}

// OpenHostPin looks up a host GPIO by name (e.g. "GPIO8") and drives it high.
func OpenHostPin(name string) (*HostPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: no host gpio named %s", ErrInvalidPin, name)
	}
	return NewHostPin(pin)
}

func NewHostPin(pin gpio.PinOut) (*HostPin, error) {
	if err := pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("could not set %s high: %w", pin, err)
	}
	return &HostPin{pin: pin}, nil
}

func (h *HostPin) Low() error {
	return h.pin.Out(gpio.Low)
}

func (h *HostPin) High() error {
	return h.pin.Out(gpio.High)
}
