package adapter

import (
	"io"
	"os"
)

// FileSystem defines an interface for file system operations to enable mocking
type FileSystem interface {
	// Create creates or truncates the named file
	Create(name string) (File, error)

	// Open opens the named file for reading
	Open(name string) (io.ReadCloser, error)

	// MkdirAll creates a directory along with any necessary parents
	MkdirAll(path string) error

	// MkdirTemp creates a new temporary directory
	MkdirTemp(pattern string) (string, error)

	// RemoveAll removes path and any children it contains
	RemoveAll(path string) error

	// Rename moves oldpath to newpath
	Rename(oldpath, newpath string) error
}

// File defines an interface for file operations
type File interface {
	io.Writer
	io.Closer
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

func (fs *RealFileSystem) Create(name string) (File, error) {
	return os.Create(name) //nolint:gosec,G304
}

func (fs *RealFileSystem) Open(name string) (io.ReadCloser, error) {
	return os.Open(name) //nolint:gosec,G304
}

func (fs *RealFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o750)
}

func (fs *RealFileSystem) MkdirTemp(pattern string) (string, error) {
	return os.MkdirTemp("", pattern)
}

func (fs *RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (fs *RealFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
