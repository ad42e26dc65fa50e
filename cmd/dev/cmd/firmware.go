package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// FirmwareCmd builds (and optionally flashes) the MCU image with tinygo.
func FirmwareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firmware",
		Short: "Build or flash the STM32F401 firmware with tinygo",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := cmd.Flags().GetString("version")
			if err != nil {
				return fmt.Errorf("could not get version flag: %w", err)
			}
			target, err := cmd.Flags().GetString("target")
			if err != nil {
				return fmt.Errorf("could not get target flag: %w", err)
			}
			flash, err := cmd.Flags().GetBool("flash")
			if err != nil {
				return fmt.Errorf("could not get flash flag: %w", err)
			}
			if _, err := exec.LookPath("tinygo"); err != nil {
				return fmt.Errorf("tinygo not installed: %w", err)
			}

			ldflags := fmt.Sprintf("-X %s.Version=%s", configPackage, version)
			tinygoArgs := []string{"build", "-target", target, "-ldflags", ldflags, "-o", "dist/baro-" + target + ".elf", "./cmd/firmware"}
			if flash {
				tinygoArgs = []string{"flash", "-target", target, "-ldflags", ldflags, "./cmd/firmware"}
			}
			slog.Info("running tinygo", "args", tinygoArgs)
			tinygo := exec.CommandContext(cmd.Context(), "tinygo", tinygoArgs...)
			tinygo.Stdout = os.Stdout
			tinygo.Stderr = os.Stderr
			if err := tinygo.Run(); err != nil {
				return fmt.Errorf("tinygo %s failed: %w", tinygoArgs[0], err)
			}
			return nil
		},
	}
	cmd.Flags().String("version", "latest", "version injected into the image")
	cmd.Flags().String("target", "nucleo-f401re", "tinygo target board")
	cmd.Flags().Bool("flash", false, "flash the board instead of writing an elf")
	return cmd
}
