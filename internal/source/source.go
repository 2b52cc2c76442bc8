// Package source opens CSV sources named in the catalog: local files through
// a filesystem provider and s3:// objects through minio-go.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/vvka-141/pgseed/internal/files/filesystem"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// FileOpener opens local paths.
type FileOpener struct {
	fs filesystem.FileSystemProvider
}

// NewFileOpener creates a FileOpener over provider.
func NewFileOpener(provider filesystem.FileSystemProvider) *FileOpener {
	return &FileOpener{fs: provider}
}

func (o *FileOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := o.fs.Open(strings.TrimPrefix(location, "file://"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", location, pgseed.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return rc, nil
}

// Router dispatches on the location scheme. Locations without a scheme and
// file:// locations go to the file opener.
type Router struct {
	file    pgseed.SourceOpener
	schemes map[string]pgseed.SourceOpener
}

// NewRouter creates a Router whose plain paths are served by file.
func NewRouter(file pgseed.SourceOpener) *Router {
	return &Router{file: file, schemes: map[string]pgseed.SourceOpener{}}
}

// Register serves scheme (without "://") with opener.
func (r *Router) Register(scheme string, opener pgseed.SourceOpener) *Router {
	r.schemes[strings.ToLower(scheme)] = opener
	return r
}

func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("empty location: %w", pgseed.ErrSourceNotFound)
	}

	scheme, _, ok := strings.Cut(location, "://")
	if !ok || strings.EqualFold(scheme, "file") {
		return r.file.Open(ctx, location)
	}

	opener, found := r.schemes[strings.ToLower(scheme)]
	if !found {
		return nil, fmt.Errorf("%s: no reader configured for %q: %w", location, scheme, pgseed.ErrUnsupportedSource)
	}
	return opener.Open(ctx, location)
}

var (
	_ pgseed.SourceOpener = (*FileOpener)(nil)
	_ pgseed.SourceOpener = (*Router)(nil)
)
