package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"targetscope/internal/api"
	"targetscope/internal/cmdlog"
	"targetscope/internal/config"
	"targetscope/internal/jobs"
	"targetscope/internal/logging"
	"targetscope/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, refresh the plan and expose metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("serve", func() error {
				return a.withSource(func(ctx context.Context) error {
					return a.serve(ctx, addr)
				})(cmd, args)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func (a *app) serve(parent context.Context, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	trigger := a.trigger()
	latest := &jobs.Latest{}
	srv := api.NewServer(a.src, trigger,
		api.WithSource(a.cfg.Source.Mode),
		api.WithLatest(latest),
		api.WithPreviewSize(a.cfg.Planner.PreviewSize),
	)
	if err := srv.Start(ctx, addr); err != nil {
		return err
	}
	metrics.StartServer(a.cfg.Metrics.Addr)

	go func() {
		_ = jobs.RunPlanLoop(ctx, trigger, latest, a.cursors, a.cfg.Planner.RefreshDuration())
	}()

	path := a.cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		go func() {
			err := config.Watch(ctx, path, func(c config.Config) {
				srv.SetPreviewSize(c.Planner.PreviewSize)
				logging.Info("preview_size_updated", map[string]any{"previewSize": c.Planner.PreviewSize})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("config_watch_error", map[string]any{"error": err.Error()})
			}
		}()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
