package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider opens files for streaming.
type FileSystemProvider interface {
	// Open opens the file at path for reading. A missing file yields an
	// error matching fs.ErrNotExist.
	Open(path string) (io.ReadCloser, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)
}
