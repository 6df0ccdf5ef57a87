package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"export-site/pkg/models"
	"export-site/pkg/services"
)

// newExportCmd creates a new command for exporting catalog data
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [format]",
		Short: "Export catalog data",
		Long:  `Export the grouped catalog in the specified format. Currently supported formats: json.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := "json"
			if len(args) > 0 {
				format = args[0]
			}
			if format != "json" {
				return fmt.Errorf("unsupported export format %q (supported: json)", format)
			}

			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			services.InitService(cfg)
			categories, err := services.GetCategories(cmd.Context())
			if err != nil {
				return err
			}
			return exportJSON(cmd.OutOrStdout(), categories)
		},
	}
}

// exportJSON writes the catalog as indented JSON. Group already orders it.
func exportJSON(w io.Writer, categories []models.Category) error {
	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling data: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
