package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stage version",
	Run: func(cmd *cobra.Command, args []string) {
		v := Version
		if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
			v = info.Main.Version
		}
		fmt.Printf("stage %s\n", v)
	},
}
