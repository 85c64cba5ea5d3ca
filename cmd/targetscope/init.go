package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"targetscope/internal/cmdlog"
	"targetscope/internal/config"
	"targetscope/internal/render"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("init", func() error {
				path := a.cfgPath
				if path == "" {
					path = config.DefaultPath()
				}
				if _, err := os.Stat(path); err == nil && !force {
					return fmt.Errorf("%s already exists; use --force to overwrite", path)
				}
				if err := config.Save(path, config.Default()); err != nil {
					return err
				}
				abs, _ := filepath.Abs(path)
				out := cmd.OutOrStdout()
				fmt.Fprint(out, render.Banner())
				fmt.Fprintln(out, "Config written to:", abs)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
