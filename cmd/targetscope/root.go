package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"targetscope/internal/backend"
	"targetscope/internal/commit"
	"targetscope/internal/config"
	"targetscope/internal/jobs"
	"targetscope/internal/local"
	"targetscope/internal/model"
	"targetscope/internal/store/sqlite"
)

// targetSource is either the local store or the backend client.
type targetSource interface {
	ListTargets(ctx context.Context) ([]model.Target, error)
	CreateTarget(ctx context.Context, t model.Target) (model.Target, error)
	UpdateTarget(ctx context.Context, id string, e model.Edit) (model.Target, error)
	DeleteTarget(ctx context.Context, id string) error
	ToggleTarget(ctx context.Context, id string) (model.Target, error)
	GetQuotaSnapshot(ctx context.Context) (model.CapacitySnapshot, error)
	CommitSchedule(ctx context.Context) (model.CommitResult, error)
}

type app struct {
	cfgPath string
	cfg     config.Config
	src     targetSource
	cursors jobs.Cursors
	closeFn func() error
}

func (a *app) load() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	switch cfg.Source.Mode {
	case config.SourceRemote:
		a.src = backend.NewClient(cfg.Backend)
		a.closeFn = func() error { return nil }
	default:
		db, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		a.src = local.New(db, cfg.Capacity)
		a.cursors = db
		a.closeFn = db.Close
	}
	return nil
}

func (a *app) close() {
	if a.closeFn != nil {
		_ = a.closeFn()
	}
}

func (a *app) trigger() *commit.Trigger {
	return commit.NewTrigger(a.src, a.src, a.src)
}

// withSource loads config and the source around f.
func (a *app) withSource(f func(ctx context.Context) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.load(); err != nil {
			return err
		}
		defer a.close()
		return f(cmd.Context())
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "targetscope",
		Short:        "Plan parsing capacity across X keyword and account targets",
		Long:         "targetscope estimates per-target yield, splits hourly capacity into keyword, account and reserved bands, and orders targets for execution.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to config file (default "+config.DefaultPath()+")")

	root.AddCommand(
		newInitCmd(a),
		newTargetsCmd(a),
		newEstimateCmd(),
		newPlanCmd(a),
		newCapacityCmd(a),
		newCommitCmd(a),
		newServeCmd(a),
	)
	return root
}
