package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"targetscope/internal/cmdlog"
	"targetscope/internal/model"
	"targetscope/internal/render"
	"targetscope/internal/store/sqlite"
	"targetscope/internal/yield"
)

func newTargetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage keyword and account targets",
	}
	cmd.AddCommand(
		newTargetsListCmd(a),
		newTargetsAddCmd(a),
		newTargetsEditCmd(a),
		newTargetsToggleCmd(a),
		newTargetsRmCmd(a),
	)
	return cmd
}

func newTargetsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List targets with their estimated posts/hour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("targets_list", func() error {
				return a.withSource(func(ctx context.Context) error {
					targets, err := a.src.ListTargets(ctx)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), render.Targets(yield.Annotate(targets)))
					return nil
				})(cmd, args)
			})
		},
	}
}

type targetFlags struct {
	priority   string
	minLikes   int
	minReposts int
	timeRange  string
	mode       string
	disabled   bool
	enabled    bool
}

func (f *targetFlags) bindSpec(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.minLikes, "min-likes", 0, "keyword: minimum likes")
	cmd.Flags().IntVar(&f.minReposts, "min-reposts", 0, "keyword: minimum reposts")
	cmd.Flags().StringVar(&f.timeRange, "time-range", string(model.Range24h), "keyword: 24h, 48h or 7d")
	cmd.Flags().StringVar(&f.mode, "mode", string(model.ModeTweets), "account: TWEETS, REPLIES or BOTH")
}

// draft builds the create payload for `targets add <type> <query...>`.
func (f *targetFlags) draft(args []string) (model.Draft, error) {
	typ, err := model.ParseType(args[0])
	if err != nil {
		return model.Draft{}, err
	}
	p, err := model.ParsePriority(f.priority)
	if err != nil {
		return model.Draft{}, err
	}
	enabled := !f.disabled
	d := model.Draft{Type: typ, Query: strings.Join(args[1:], " "), Priority: p, Enabled: &enabled}
	switch typ {
	case model.TypeKeyword:
		d.Filters = &model.KeywordFilters{MinLikes: f.minLikes, MinReposts: f.minReposts, TimeRange: model.TimeRange(f.timeRange)}
	case model.TypeAccount:
		if d.Mode, err = model.ParseMode(f.mode); err != nil {
			return d, err
		}
	}
	return d, nil
}

func newTargetsAddCmd(a *app) *cobra.Command {
	f := &targetFlags{}
	cmd := &cobra.Command{
		Use:     "add <keyword|account> <query>",
		Short:   "Add a target",
		Example: "  targetscope targets add keyword eth etf --priority HIGH --min-likes 20\n  targetscope targets add account @lookonchain --mode BOTH",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("targets_add", func() error {
				d, err := f.draft(args)
				if err != nil {
					return err
				}
				t, err := d.Target()
				if err != nil {
					return err
				}
				return a.withSource(func(ctx context.Context) error {
					created, err := a.src.CreateTarget(ctx, t)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "added %s %s (%s)\n", created.Type(), created.Label(), created.ID)
					return nil
				})(cmd, args)
			})
		},
	}
	cmd.Flags().StringVar(&f.priority, "priority", string(model.PriorityMedium), "HIGH, MEDIUM or LOW")
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "create the target disabled")
	f.bindSpec(cmd)
	return cmd
}

// edit turns the changed flags into a partial update. Filter flags are
// merged over the target's current filters.
func (f *targetFlags) edit(cmd *cobra.Command, cur model.Target) (model.Edit, error) {
	var e model.Edit
	fl := cmd.Flags()
	if fl.Changed("priority") {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return e, err
		}
		e.Priority = &p
	}
	if fl.Changed("enabled") {
		enabled := f.enabled
		e.Enabled = &enabled
	}
	if fl.Changed("mode") {
		m, err := model.ParseMode(f.mode)
		if err != nil {
			return e, err
		}
		e.Mode = &m
	}
	if fl.Changed("min-likes") || fl.Changed("min-reposts") || fl.Changed("time-range") {
		filters, ok := cur.KeywordFilters()
		if !ok {
			return e, fmt.Errorf("%w: filters on account target", model.ErrInvalidTarget)
		}
		if fl.Changed("min-likes") {
			filters.MinLikes = f.minLikes
		}
		if fl.Changed("min-reposts") {
			filters.MinReposts = f.minReposts
		}
		if fl.Changed("time-range") {
			filters.TimeRange = model.TimeRange(f.timeRange)
		}
		e.Filters = &filters
	}
	return e, nil
}

func findTarget(ctx context.Context, src targetSource, id string) (model.Target, error) {
	targets, err := src.ListTargets(ctx)
	if err != nil {
		return model.Target{}, err
	}
	for _, t := range targets {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Target{}, fmt.Errorf("%w: %s", sqlite.ErrNotFound, id)
}

func newTargetsEditCmd(a *app) *cobra.Command {
	f := &targetFlags{}
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Change a target's priority, state, filters or mode",
		Example: "  targetscope targets edit 3f2c... --priority LOW --enabled=false",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("targets_edit", func() error {
				return a.withSource(func(ctx context.Context) error {
					cur, err := findTarget(ctx, a.src, args[0])
					if err != nil {
						return err
					}
					e, err := f.edit(cmd, cur)
					if err != nil {
						return err
					}
					t, err := a.src.UpdateTarget(ctx, cur.ID, e)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "updated %s %s\n", t.Type(), t.Label())
					return nil
				})(cmd, args)
			})
		},
	}
	cmd.Flags().StringVar(&f.priority, "priority", "", "HIGH, MEDIUM or LOW")
	cmd.Flags().BoolVar(&f.enabled, "enabled", true, "enable or disable the target")
	f.bindSpec(cmd)
	return cmd
}

func newTargetsToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("targets_toggle", func() error {
				return a.withSource(func(ctx context.Context) error {
					t, err := a.src.ToggleTarget(ctx, args[0])
					if err != nil {
						return err
					}
					state := "disabled"
					if t.Enabled {
						state = "enabled"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, t.Label())
					return nil
				})(cmd, args)
			})
		},
	}
}

func newTargetsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a target",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("targets_rm", func() error {
				return a.withSource(func(ctx context.Context) error {
					if err := a.src.DeleteTarget(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
					return nil
				})(cmd, args)
			})
		},
	}
}
