package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"targetscope/internal/cmdlog"
	"targetscope/internal/render"
)

func newPlanCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution order of enabled targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("plan", func() error {
				return a.withSource(func(ctx context.Context) error {
					p, err := a.trigger().Preview(ctx)
					if err != nil {
						return err
					}
					n := limit
					if n <= 0 {
						n = a.cfg.Planner.PreviewSize
					}
					fmt.Fprint(cmd.OutOrStdout(), render.Plan(p, n))
					return nil
				})(cmd, args)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "entries to show (default planner.previewSize)")
	return cmd
}

func newCapacityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity",
		Short: "Show the capacity bands and quota window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("capacity", func() error {
				return a.withSource(func(ctx context.Context) error {
					p, err := a.trigger().Preview(ctx)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), render.Capacity(p.Allocation, p.Quota))
					return nil
				})(cmd, args)
			})
		},
	}
}

func newCommitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Commit a scheduling cycle for the enabled targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("commit", func() error {
				return a.withSource(func(ctx context.Context) error {
					res, err := a.trigger().Run(ctx)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					fmt.Fprint(out, render.Commit(res))
					fmt.Fprint(out, render.Plan(res.Preview, a.cfg.Planner.PreviewSize))
					return nil
				})(cmd, args)
			})
		},
	}
}
