package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/nmurali/signbridge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigPathsCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write default configuration files under the project root",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := ctx.registry(ctx.logger())

			defaults := []struct {
				name string
				cfg  config.Config
			}{
				{"camera", config.DefaultCamera()},
				{"processor", config.DefaultProcessor()},
				{"app", config.DefaultApp()},
			}

			out := cmd.OutOrStdout()
			for _, d := range defaults {
				path, ok := registry.GetPath(d.name + "_config")
				if !ok {
					return fmt.Errorf("no registered path for %s configuration", d.name)
				}
				if !overwrite {
					if _, err := os.Stat(path); err == nil {
						fmt.Fprintf(out, "%s configuration already exists at %s (use --overwrite to replace it)\n", d.name, path)
						continue
					} else if !os.IsNotExist(err) {
						return fmt.Errorf("check config path: %w", err)
					}
				}
				if !registry.Save(d.cfg, path) {
					return fmt.Errorf("could not write %s configuration to %s", d.name, path)
				}
				fmt.Fprintf(out, "Wrote %s configuration to %s\n", d.name, path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration files")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "show <name>",
		Short:     "Print the effective configuration for a component",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"camera", "processor", "app"},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := ctx.registry(ctx.logger())

			name := args[0]
			cfg := registry.Get(name)
			if cfg == nil {
				return fmt.Errorf("no %s configuration loaded (run \"signbridge config init\" to create defaults)", name)
			}
			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode %s configuration: %w", name, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}

func newConfigPathsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List the symbolic paths registered for the project root",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := ctx.registry(ctx.logger())

			paths := registry.Paths()
			names := make([]string, 0, len(paths))
			for name := range paths {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%-18s %s\n", name, paths[name])
			}
			return nil
		},
	}
}
