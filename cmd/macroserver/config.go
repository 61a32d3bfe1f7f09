package main

import (
	"fmt"

	"github.com/danmuck/macroctl/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or check config files",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write a default config template (.toml or .yaml)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteTemplate(args[0], kind, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s config template to %s\n", kind, args[0])
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Load and validate a config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		var err error
		switch kind {
		case config.KindServer:
			_, err = config.LoadServerConfig(args[0])
		case config.KindClient:
			_, err = config.LoadClientConfig(args[0])
		default:
			err = fmt.Errorf("unknown config kind: %s", kind)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Validated %s config at %s\n", kind, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	configCmd.PersistentFlags().String("kind", config.KindServer, "config kind: server|client")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
