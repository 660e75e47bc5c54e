package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...commands.Version=v1.2.3".
var Version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", appName, version())
		if verbose {
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
			if cfg := getConfig(); cfg != nil {
				fmt.Fprintf(out, "  config: %s\n", cfg.Path())
			}
		}
	},
}

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}
