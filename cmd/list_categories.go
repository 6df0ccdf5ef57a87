package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"export-site/pkg/models"
	"export-site/pkg/services"
)

// newListCategoriesCmd creates a new command for listing categories
func newListCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-categories",
		Short: "List all product categories",
		Long:  `List all product categories with their subcategories and product counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			services.InitService(cfg)
			categories, err := services.GetCategories(cmd.Context())
			if err != nil {
				return err
			}
			printCategories(cmd.OutOrStdout(), categories)
			return nil
		},
	}
}

// printCategories displays all categories and their subcategories
func printCategories(w io.Writer, categories []models.Category) {
	fmt.Fprintln(w, "Product Categories:")
	fmt.Fprintln(w, "===================")

	products := 0
	for _, category := range categories {
		fmt.Fprintf(w, "%s [%s]\n", category.Name, category.Stub)
		for _, sub := range category.Subcategories {
			fmt.Fprintf(w, "  %s: %d products\n", sub.Name, len(sub.Products))
		}
		fmt.Fprintln(w)
		products += category.ProductCount()
	}

	fmt.Fprintf(w, "Total: %d categories, %d products\n", len(categories), products)
}
