// Package filesystem abstracts read access to local CSV sources so the
// loader can be tested without touching disk.
//
// Implementations:
//   - OSFileSystem: production implementation backed by the os package
//   - MemoryFileSystem: in-memory implementation for tests
package filesystem
