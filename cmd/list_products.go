package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"export-site/pkg/catalog"
	"export-site/pkg/models"
	"export-site/pkg/services"
)

// newListProductsCmd creates a new command for searching the catalog
func newListProductsCmd() *cobra.Command {
	var (
		category    string
		subcategory string
		page        int
		pageSize    int
	)

	cmd := &cobra.Command{
		Use:   "list-products [query]",
		Short: "List products, optionally filtered",
		Long:  `List one page of products filtered by a text query, a category (name or stub) and a subcategory.`,
		Args:  cobra.ArbitraryArgs,
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

			if pageSize <= 0 {
				pageSize = cfg.PageSize
			}
			q := catalog.Query{
				Text:        strings.Join(args, " "),
				Category:    category,
				Subcategory: subcategory,
			}
			if cat, ok := catalog.Find(categories, category); ok {
				q.Category = cat.Name
			}
			printProducts(cmd.OutOrStdout(), catalog.Page(categories, q, pageSize, page))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list products of this category")
	cmd.Flags().StringVarP(&subcategory, "subcategory", "s", "", "Only list products of this subcategory")
	cmd.Flags().IntVar(&page, "page", 1, "Page to show, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Products per page (defaults to PAGE_SIZE)")

	return cmd
}

// printProducts displays one page of products
func printProducts(w io.Writer, page models.ProductPage) {
	if len(page.Products) == 0 {
		fmt.Fprintf(w, "No products on page %d (%d matching)\n", page.Page, page.Total)
		return
	}

	for i, p := range page.Products {
		fmt.Fprintf(w, "%d. %s\n", (page.Page-1)*page.PageSize+i+1, p.Name)
		fmt.Fprintf(w, "   %s / %s\n", p.Category, p.Subcategory)
		if p.ImageURL != "" {
			fmt.Fprintf(w, "   Image: %s\n", p.ImageURL)
		}
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d products)\n", page.Page, page.Pages, page.Total)
}
