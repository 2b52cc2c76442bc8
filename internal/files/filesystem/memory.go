package filesystem

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return false }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

// MemoryFileSystem implements FileSystemProvider for in-memory testing.
// Paths are normalized to forward slashes.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	opens map[string]int
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// AddFile adds or replaces a file.
func (m *MemoryFileSystem) AddFile(p, content string) *MemoryFileSystem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normalize(p)] = []byte(content)
	return m
}

// Opens reports how many times p was opened successfully.
func (m *MemoryFileSystem) Opens(p string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opens[normalize(p)]
}

func (m *MemoryFileSystem) Open(p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalize(p)
	content, ok := m.files[key]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	m.opens[key]++
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[normalize(p)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	return &memoryFileInfo{name: path.Base(normalize(p)), size: int64(len(content))}, nil
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
