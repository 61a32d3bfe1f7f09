package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/macroctl/internal/logging"
	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "macroclient",
	Short: "Request generated text from a macro server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. An Error response has already been
// rendered to stdout, so only the exit status reports it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var remote *protocol.RemoteError
		if !errors.As(err, &remote) {
			fmt.Fprintf(os.Stderr, "macroclient: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a .toml or .yaml config file")
	rootCmd.PersistentFlags().String("addr", "", "server address (overrides config)")
}
