//go:build tinygo && stm32f4

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mklimuk/baro/config"
	"github.com/mklimuk/baro/firmware"
	"github.com/mklimuk/baro/mcu"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("baro firmware", "version", config.Version)

	p, err := mcu.Take(mcu.Device)
	if err != nil {
		halt(logger, err)
	}
	fw := firmware.New(p, config.Default(), firmware.WithLogger(logger))
	if err := fw.Run(context.Background()); err != nil {
		halt(logger, err)
	}
}

// halt parks the core in the fault state, reporting the cause periodically.
func halt(logger *slog.Logger, err error) {
	for {
		logger.Error("halted", "error", err)
		time.Sleep(5 * time.Second)
	}
}
