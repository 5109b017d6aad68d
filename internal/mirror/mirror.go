// Package mirror deletes local files that are no longer part of the remote
// album.
package mirror

import (
	"fmt"

	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/logging"
)

type Reconciler struct {
	fs  fs.FS
	log logging.Logger
}

func New(filesystem fs.FS, log logging.Logger) *Reconciler {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Reconciler{fs: filesystem, log: log}
}

// Reconcile removes every regular file in dir whose name is not in keep.
// Names in protect are always kept, as are in-flight temp files.
// It returns the deleted names; per-file errors are logged and skipped.
func (r *Reconciler) Reconcile(dir string, keep map[string]struct{}, protect ...string) ([]string, error) {
	files, err := r.Listing(dir)
	if err != nil {
		return nil, err
	}

	guard := make(map[string]struct{}, len(protect))
	for _, name := range protect {
		guard[name] = struct{}{}
	}

	var deleted []string
	for _, f := range files {
		if _, ok := keep[f.Name]; ok {
			continue
		}
		if _, ok := guard[f.Name]; ok {
			continue
		}
		if err := r.fs.Remove(f.Path); err != nil {
			r.log.Warn("mirror: delete failed", "file", f.Name, "error", err)
			continue
		}
		r.log.Info("mirror: deleted", "file", f.Name)
		deleted = append(deleted, f.Name)
	}
	return deleted, nil
}

// Listing returns the regular, settled files in dir. A missing directory
// lists as empty.
func (r *Reconciler) Listing(dir string) ([]fs.FileInfo, error) {
	entries, err := r.fs.List(dir)
	if err != nil {
		if fs.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	files := entries[:0]
	for _, e := range entries {
		if e.IsDir || fs.IsTemp(e.Name) {
			continue
		}
		files = append(files, e)
	}
	return files, nil
}

// KeepSet picks the names a sync round must preserve. When nothing was
// downloaded the current listing is kept whole, so an empty or failed fetch
// never empties the directory.
func (r *Reconciler) KeepSet(dir string, downloaded []string) (map[string]struct{}, error) {
	keep := make(map[string]struct{})
	if len(downloaded) > 0 {
		for _, name := range downloaded {
			keep[name] = struct{}{}
		}
		return keep, nil
	}

	files, err := r.Listing(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		keep[f.Name] = struct{}{}
	}
	return keep, nil
}
