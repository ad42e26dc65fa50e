package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/baro/cmd/baro/console"
	"github.com/mklimuk/baro/config"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective firmware configuration",
	Subcommands: cli.Commands{
		&configValidateCmd,
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		out, err := config.Marshal(cfg)
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		console.Printf("# baro %s\n%s", config.Version, out)
		return nil
	},
}

var configValidateCmd = cli.Command{
	Name:  "validate",
	Usage: "check the configuration and print the resulting clocks",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		if err := cfg.Validate(); err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		sysclk := cfg.Clock.SysClock()
		div, sck, err := cfg.SPI.Clock(sysclk)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "configuration valid")
		console.Infof("sysclk %s, spi %s /%d = %s", console.Bold(sysclk), cfg.SPI.Mode, div, console.Bold(sck))
		return nil
	},
}
