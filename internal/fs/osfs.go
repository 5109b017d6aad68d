package fs

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// BillyFS is the concrete implementation of FS backed by a go-billy filesystem.
// New roots it at "/" on the local disk so callers pass absolute paths.
type BillyFS struct {
	fs billy.Filesystem
}

func New() *BillyFS {
	return &BillyFS{fs: osfs.New("/")}
}

// Wrap adapts any billy filesystem.
func Wrap(bfs billy.Filesystem) *BillyFS {
	return &BillyFS{fs: bfs}
}

// NewMemory returns an in-memory filesystem, used by tests.
func NewMemory() *BillyFS {
	return &BillyFS{fs: memfs.New()}
}

func (b *BillyFS) Stat(path string) (FileInfo, error) {
	st, err := b.fs.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Name:  st.Name(),
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		IsDir: st.IsDir(),
	}, nil
}

// List returns the entries of dir sorted by name.
func (b *BillyFS) List(dir string) ([]FileInfo, error) {
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, FileInfo{
			Name:  e.Name(),
			Path:  filepath.Join(dir, e.Name()),
			Size:  e.Size(),
			MTime: e.ModTime(),
			IsDir: e.IsDir(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *BillyFS) CreateTemp(dir, prefix string) (File, error) {
	return b.fs.TempFile(dir, prefix)
}

func (b *BillyFS) ReadFile(path string) ([]byte, error) {
	return util.ReadFile(b.fs, path)
}

func (b *BillyFS) MkdirAll(path string) error {
	return b.fs.MkdirAll(path, 0o755)
}

func (b *BillyFS) Remove(path string) error {
	return b.fs.Remove(path)
}

func (b *BillyFS) Rename(ctx context.Context, oldPath, newPath string) error {
	return renameWithRetry(ctx, b.fs, oldPath, newPath)
}
