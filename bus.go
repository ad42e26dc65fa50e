package baro

import (
	"context"
	"fmt"
)

// ErrNotReady is returned when a hardware status flag did not reach the
// expected state within the configured polling limit.
var ErrNotReady = fmt.Errorf("hardware not ready")

// ByteExchanger clocks one byte out on MOSI while clocking one byte in on MISO.
type ByteExchanger interface {
	ExchangeByte(ctx context.Context, data byte) (byte, error)
}

// ChipSelect drives an active-low slave select line.
type ChipSelect interface {
	Low() error
	High() error
}

// SPIBus is a full-duplex master that also exchanges whole buffers.
type SPIBus interface {
	ByteExchanger
	Tx(ctx context.Context, w, r []byte) error
}
