package main

import (
	"fmt"
	"os"

	"github.com/danmuck/macroctl/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "macroserver",
	Short: "Macro protocol generation server",
	Long:  `macroserver answers Generate requests from macro clients over TCP with the demo generator service.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime()
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "macroserver: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a .toml or .yaml config file")
}
