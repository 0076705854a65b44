package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/spf13/cobra"
)

var categoriesJSON bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the selectable building categories and regions",
	Long: `List the building categories and regions questions can be scoped to.

The catalog comes from --catalog (or PERMITDESK_CATALOG) when set, otherwise
from the backend folder listing, otherwise from the built-in catalog.

Examples:
  permitdesk categories
  permitdesk categories --catalog catalog.yaml --json`,
	Args: cobra.NoArgs,
	RunE: runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "Print the catalog as JSON")
}

func runCategories(cmd *cobra.Command, args []string) error {
	catalog, source, err := loadCatalog(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if categoriesJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(catalog)
	}

	r := render.New(cmd.OutOrStdout())
	r.Catalog(catalog, source)
	r.QuickQuestions(catalog.QuickQuestions)
	return nil
}
