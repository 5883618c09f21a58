package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/edvora/minerva/cmd/minerva/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:     %s\n", runtime.Version())
			if cfg, err := GetConfig(); err == nil {
				fmt.Printf("  listen: %s\n", cfg.Listen)
				fmt.Printf("  data:   %s\n", cfg.Data)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
