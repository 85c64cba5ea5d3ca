package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"targetscope/internal/cmdlog"
	"targetscope/internal/model"
	"targetscope/internal/yield"
)

// newEstimateCmd previews yields without touching any store.
func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate posts/hour for a prospective target",
	}
	var (
		priority   string
		active     int
		minLikes   int
		minReposts int
		mode       string
	)
	kw := &cobra.Command{
		Use:   "keyword",
		Short: "Estimate a keyword target sharing the pool with --active keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("estimate_keyword", func() error {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				if active < 0 || minLikes < 0 || minReposts < 0 {
					return fmt.Errorf("%w: --active, --min-likes and --min-reposts must not be negative", model.ErrInvalidTarget)
				}
				n := yield.EstimateKeywordYield(p, active, model.KeywordFilters{MinLikes: minLikes, MinReposts: minReposts})
				fmt.Fprintf(cmd.OutOrStdout(), "%d posts/h\n", n)
				return nil
			})
		},
	}
	kw.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "HIGH, MEDIUM or LOW")
	kw.Flags().IntVar(&active, "active", 1, "active keyword targets including this one")
	kw.Flags().IntVar(&minLikes, "min-likes", 0, "minimum likes")
	kw.Flags().IntVar(&minReposts, "min-reposts", 0, "minimum reposts")

	acc := &cobra.Command{
		Use:   "account",
		Short: "Estimate an account target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("estimate_account", func() error {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				m, err := model.ParseMode(mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d posts/h\n", yield.EstimateAccountYield(p, m))
				return nil
			})
		},
	}
	acc.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "HIGH, MEDIUM or LOW")
	acc.Flags().StringVar(&mode, "mode", string(model.ModeTweets), "TWEETS, REPLIES or BOTH")

	cmd.AddCommand(kw, acc)
	return cmd
}
