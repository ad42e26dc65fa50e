package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const configPackage = "github.com/mklimuk/baro/config"

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the baro host cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := cmd.Flags().GetString("version")
			if err != nil {
				return fmt.Errorf("could not get version flag: %w", err)
			}
			goos, err := cmd.Flags().GetString("os")
			if err != nil {
				return fmt.Errorf("could not get os flag: %w", err)
			}
			arch, err := cmd.Flags().GetString("arch")
			if err != nil {
				return fmt.Errorf("could not get arch flag: %w", err)
			}
			// periph.io talks to /dev/spidev directly, cgo is not needed
			if !useDocker(cmd) {
				return build.GoBuild(fmt.Sprintf("dist/baro-%s-%s", goos, arch), "./cmd/baro", build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: configPackage,
					EnableCgo:     false,
					Arch:          arch,
					OS:            goos,
				})
			}
			noCache, err := cmd.Flags().GetBool("no-cache")
			if err != nil {
				return fmt.Errorf("could not get no-cache flag: %w", err)
			}
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", runtime.GOOS, runtime.GOARCH), []string{"build", "--version", version, "--os", goos, "--arch", arch}, build.DockerBuildOpts{
				NoCache: noCache,
				Image:   "gophertribe/gobuild:1.25-bookworm",
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building in docker")
	cmd.Flags().Bool("docker", false, "build inside the gobuild docker image")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for (arm64 for a Raspberry Pi host)")
	return cmd
}

func useDocker(cmd *cobra.Command) bool {
	docker, err := cmd.Flags().GetBool("docker")
	return err == nil && docker
}
