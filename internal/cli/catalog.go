package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/report"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate catalogs",
		Args:  cobra.NoArgs,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "List databases, schemas and tables with their sources",
		Long: `Show prints every table of the catalog with its resolved CSV source and a
fingerprint of its normalized column definition. Two catalogs that produce
the same fingerprint for a table create the same table structure.`,
		Args: cobra.NoArgs,
		RunE: runCatalogShow,
	}
	addCatalogFlags(show.Flags())

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog without connecting to a server",
		Args:  cobra.NoArgs,
		RunE:  runCatalogValidate,
	}
	addCatalogFlags(validate.Flags())

	export := &cobra.Command{
		Use:   "export",
		Short: "Print the built-in catalog as YAML, a starting point for --catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(catalog.BuiltinYAML())
			return err
		},
	}

	cmd.AddCommand(show, validate, export)
	return cmd
}

func selectedCatalog(cmd *cobra.Command) (catalog.Catalog, string, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return catalog.Catalog{}, "", err
	}
	if err := report.ValidateFormat(settings.Report); err != nil {
		return catalog.Catalog{}, "", err
	}

	cat, err := loadCatalog(settings)
	if err != nil {
		return catalog.Catalog{}, "", err
	}
	cat, err = cat.Select(settings.Only)
	if err != nil {
		return catalog.Catalog{}, "", err
	}
	return cat, settings.Report, nil
}

func runCatalogShow(cmd *cobra.Command, _ []string) error {
	cat, format, err := selectedCatalog(cmd)
	if err != nil {
		return err
	}
	return report.RenderCatalog(cmd.OutOrStdout(), cat, format)
}

func runCatalogValidate(cmd *cobra.Command, _ []string) error {
	cat, _, err := selectedCatalog(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Catalog OK: %d databases, %d tables\n", len(cat.Databases), cat.TableCount())
	return nil
}
