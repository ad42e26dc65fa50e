package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/baro/cmd/baro/console"
)

var writeCmd = cli.Command{
	Name:      "write",
	Usage:     "write a register of an LPS25HB wired to this host",
	ArgsUsage: "<addr> <value>",
	Flags: append(hostFlags(),
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask for confirmation",
		},
	),
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected register address and value, got %d arguments", c.NArg())
		}
		addr, err := parseByte(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		value, err := parseByte(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if !c.Bool("yes") {
			ok, err := console.Confirm("write " + strconv.Quote(c.Args().Get(1)) + " to register " + c.Args().Get(0) + "?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if !ok {
				console.Infof("aborted")
				return nil
			}
		}

		sensor, closeFn, err := openHost(c)
		if err != nil {
			return console.Exit(1, "host initialization error: %s", console.Red(err))
		}
		defer closeFn()

		if err := sensor.WriteRegister(c.Context, addr, value); err != nil {
			return console.Exit(1, "write error: %s", console.Red(err))
		}
		got, err := sensor.ReadRegister(c.Context, addr)
		if err != nil {
			return console.Exit(1, "read back error: %s", console.Red(err))
		}
		console.Register(addr, got)
		if got != value {
			console.Warnf("read back %#02x, register may be read-only or self-clearing", got)
		}
		return nil
	},
}
