package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nmurali/signbridge/internal/translate"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List installed translation models",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := ctx.registry(ctx.logger())

			modelsDir, _ := registry.GetPath("models_dir")
			catalog := translate.NewCatalog(modelsDir)
			if err := catalog.Discover(); err != nil {
				return fmt.Errorf("scan models directory: %w", err)
			}

			models := catalog.List()
			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintf(out, "No models installed under %s\n", catalog.ModelsDir())
				return nil
			}
			for _, m := range models {
				fmt.Fprintf(out, "%-20s %-10s %s\n", m.Manifest.Name, m.Manifest.Version, m.Manifest.Description)
			}
			return nil
		},
	}
}
