package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/macroctl/internal/config"
	"github.com/danmuck/macroctl/internal/generator"
	"github.com/danmuck/macroctl/internal/logging"
	"github.com/danmuck/macroctl/internal/observability"
	"github.com/danmuck/macroctl/internal/protocol"
	"github.com/danmuck/macroctl/internal/protocol/session"
	"github.com/danmuck/macroctl/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for macro clients until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadServerConfig(path)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, nil)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
}

// runServe serves until ctx ends. ready, when non-nil, receives the bound
// protocol address once listening.
func runServe(ctx context.Context, cfg config.ServerConfig, ready chan<- net.Addr) error {
	logger := logging.Component("macroserver")
	desc := protocol.NewDescriptors()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	logger.Info().Str("addr", ln.Addr().String()).Int("max_connections", cfg.MaxConnections).Msg("listening")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		mln, err := lc.Listen(ctx, "tcp", cfg.MetricsAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
		}
		g.Go(func() error {
			return observability.ServeMetrics(gctx, mln, logger)
		})
	}

	srv := session.NewServer(cfg.Transport(), desc, generator.Factory(generator.WithLogger(logger)),
		transport.WithLogger(logger),
		transport.WithObserver(func(r transport.ConnResult) {
			if r.Panicked {
				logger.Error().Str("conn_id", r.ID).Err(r.Err).Msg("handler panicked")
			}
		}),
	)
	if ready != nil {
		ready <- ln.Addr()
	}
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}
