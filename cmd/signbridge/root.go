package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
)

// version is replaced at build time via -ldflags "-X main.version=...".
var version = "dev"

// commandContext carries the persistent flag values shared by every
// subcommand. The flags are bound on the root command, so values are
// only valid once Execute has parsed them.
type commandContext struct {
	root      *string
	logLevel  *string
	logFormat *string
}

func (c *commandContext) logger() *slog.Logger {
	return logging.New(logging.Config{Level: *c.logLevel, Format: *c.logFormat}, os.Stderr)
}

func (c *commandContext) registry(logger *slog.Logger) *config.Registry {
	reg := config.NewRegistry(*c.root, logger)
	config.RegisterDefaults(reg)
	return reg
}

func newRootCommand() *cobra.Command {
	var rootFlag string
	var logLevelFlag string
	var logFormatFlag string

	ctx := &commandContext{
		root:      &rootFlag,
		logLevel:  &logLevelFlag,
		logFormat: &logFormatFlag,
	}

	rootCmd := &cobra.Command{
		Use:           "signbridge",
		Short:         "Sign language translation dashboard",
		Long:          "SignBridge captures camera frames, translates signing into text and serves a live dashboard.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running with no subcommand starts the service.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, "", false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "Project root holding configs/, data/ and models/")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "Log format (text or json)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newModelsCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the signbridge version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "signbridge %s\n", version)
			return nil
		},
	}
}
