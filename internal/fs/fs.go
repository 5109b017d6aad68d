// Package fs defines the filesystem abstraction used for album destinations.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"io"
	"strings"
	"time"
)

type FileInfo struct {
	Name  string
	Path  string
	Size  int64
	MTime time.Time
	IsDir bool
}

// File is a writable handle returned by CreateTemp.
type File interface {
	io.Writer
	io.Closer
	Name() string
}

type FS interface {
	Stat(path string) (FileInfo, error)
	List(dir string) ([]FileInfo, error)
	CreateTemp(dir, prefix string) (File, error)
	ReadFile(path string) ([]byte, error)
	Rename(ctx context.Context, oldPath, newPath string) error
	MkdirAll(path string) error
	Remove(path string) error
}

// TempPrefix marks in-flight files. Retention and mirroring leave them alone.
const TempPrefix = ".album-mirror-"

func IsTemp(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}
