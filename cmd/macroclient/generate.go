package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/macroctl/internal/config"
	"github.com/danmuck/macroctl/internal/output"
	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/danmuck/macroctl/internal/protocol/session"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <command> [args...]",
	Short: "Run one Generate request and print the rendered output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadClientConfig(path)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runGenerate(ctx, cfg, args[0], args[1:], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

// runGenerate performs one request with a graceful close and renders the
// response to w. An Error response is rendered and then returned as a
// *protocol.RemoteError.
func runGenerate(ctx context.Context, cfg config.ClientConfig, name string, args []string, w io.Writer) error {
	var resp protocol.Response
	err := session.WithClient(ctx, cfg.Addr, cfg.Transport(), protocol.NewDescriptors(),
		func(ctx context.Context, c *session.Client) error {
			var err error
			resp, err = c.Generate(ctx, name, args)
			if err != nil {
				return err
			}
			return c.Close(ctx)
		})
	if err != nil {
		return err
	}

	iw := output.NewIndentWriter(w)
	output.RenderResponse(resp, iw)
	if err := iw.Err(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if e, ok := resp.(protocol.Error); ok {
		return &protocol.RemoteError{Record: e.Record}
	}
	return nil
}
