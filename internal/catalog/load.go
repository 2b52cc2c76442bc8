package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vvka-141/pgseed/pkg/pgseed"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// ErrCatalogNotFound is returned when a catalog file does not exist.
var ErrCatalogNotFound = errors.New("catalog file not found")

// Builtin returns the default catalog. Relative sources resolve against
// baseDir, usually the working directory.
func Builtin(baseDir string) Catalog {
	c, err := Parse(builtinYAML, baseDir)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// BuiltinYAML returns the source of the built-in catalog, a starting point
// for a custom catalog file.
func BuiltinYAML() []byte {
	return append([]byte(nil), builtinYAML...)
}

// Load reads a YAML catalog file. Relative sources resolve against the
// file's directory.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Catalog{}, fmt.Errorf("%s: %w", path, ErrCatalogNotFound)
		}
		return Catalog{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Catalog{}, err
	}

	c, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected so
// that a misspelled "colums" does not silently create an empty table.
func Parse(data []byte, baseDir string) (Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Catalog{}, fmt.Errorf("decode catalog: %v: %w", err, pgseed.ErrInvalidCatalog)
	}
	c.BaseDir = baseDir

	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
