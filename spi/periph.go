//go:build !tinygo

package spi

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/baro"
)

var _ baro.SPIBus = &HostBus{}

// HostBus exchanges bytes over a Linux SPI device through periph.io. The
// port is opened with NoCS: chip-select is driven separately so that it can
// stay asserted across single-byte transfers.
type HostBus struct {
	port spi.PortCloser
	conn spi.Conn
}

func OpenHostBus(dev string, maxClock physic.Frequency) (*HostBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, failure := range state.Failed {
		slog.Warn("periph driver failed", "driver", failure.String())
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open spi port %s: %w", dev, err)
	}
	conn, err := port.Connect(maxClock, spi.Mode3|spi.NoCS, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("could not connect to spi port %s: %w", dev, err)
	}
	return &HostBus{port: port, conn: conn}, nil
}

// NewHostBus wraps an already connected periph.io connection.
func NewHostBus(conn spi.Conn) *HostBus {
	return &HostBus{conn: conn}
}

func (b *HostBus) ExchangeByte(ctx context.Context, data byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r := []byte{0}
	if err := b.conn.Tx([]byte{data}, r); err != nil {
		return 0, fmt.Errorf("could not exchange byte on %s: %w", b.conn, err)
	}
	return r[0], nil
}

func (b *HostBus) Tx(ctx context.Context, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.conn.Tx(w, r); err != nil {
		return fmt.Errorf("could not exchange %d bytes on %s: %w", len(w), b.conn, err)
	}
	return nil
}

func (b *HostBus) Close() error {
	if b.port == nil {
		return nil
	}
	return b.port.Close()
}
