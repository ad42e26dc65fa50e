// Package console formats CLI output and prompts the operator.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/baro/pressure"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

const (
	PictoGauge       = "🧭"
	PictoThermometer = "🌡"
	PictoChip        = "📟"
	PictoStop        = "🚫"
	PictoFinish      = "🏁"
	PictoPin         = "📌"
)

var (
	writer    io.Writer = os.Stdout
	errWriter io.Writer = os.Stderr
)

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Exit(code int, msg string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

func Errorf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}

// Sample prints one pressure reading with its full-resolution value.
func Sample(s pressure.Sample) {
	PInfof(PictoGauge, "%s hPa  %s  %s",
		Bold(s.HPa),
		Cyan(s.Pressure().String()),
		White(fmt.Sprintf("raw %#06x", s.Raw)),
	)
}

func Temperature(celsius float32) {
	PInfof(PictoThermometer, "%s °C", White(fmt.Sprintf("%.2f", celsius)))
}

// Register prints a register address and value in hex and binary.
func Register(addr, value byte) {
	Printf("%s %s = %s %s\n", PictoChip, Cyan(fmt.Sprintf("%#02x", addr)), Bold(fmt.Sprintf("%#02x", value)), White(fmt.Sprintf("%08b", value)))
}
