package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/config"
	"github.com/vvka-141/pgseed/internal/files/filesystem"
	"github.com/vvka-141/pgseed/internal/source"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// loadSettings loads .env into the environment, then merges all settings
// layers with the flags of cmd.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	_ = godotenv.Load()

	file, _ := cmd.Flags().GetString("config")
	s, err := config.Load(config.LoadOptions{File: file, Flags: cmd.Flags()})
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w: %w", pgseed.ErrInvalidConfig, err)
		}
		return nil, err
	}
	return s, nil
}

// loadCatalog returns the catalog named in the settings or the built-in one.
func loadCatalog(s *config.Settings) (catalog.Catalog, error) {
	if s.Catalog != "" {
		cat, err := catalog.Load(s.Catalog)
		if errors.Is(err, catalog.ErrCatalogNotFound) {
			return catalog.Catalog{}, fmt.Errorf("%w: %w", pgseed.ErrInvalidCatalog, err)
		}
		return cat, err
	}

	base, err := filepath.Abs(s.BaseDir)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("base dir %q: %w", s.BaseDir, err)
	}
	return catalog.Builtin(base), nil
}

// newSourceOpener serves local paths, plus s3:// when an endpoint is set.
func newSourceOpener(s *config.Settings) (pgseed.SourceOpener, error) {
	router := source.NewRouter(source.NewFileOpener(filesystem.NewOSFileSystem()))
	if cfg := s.S3Config(); cfg.Configured() {
		s3, err := source.NewMinioOpener(cfg)
		if err != nil {
			return nil, err
		}
		router.Register("s3", s3)
	}
	return router, nil
}
