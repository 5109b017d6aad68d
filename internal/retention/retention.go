package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/logging"
)

// Policy bounds what an album directory keeps. Zero disables a pass.
type Policy struct {
	KeepDays int
	MaxFiles int
	// Protect names files that are never pruned, such as the ledger.
	Protect []string
}

// Report lists what a prune removed.
type Report struct {
	ByAge   []string
	ByCount []string
}

type Engine struct {
	fs  fs.FS
	log logging.Logger
	now func() time.Time
}

func New(filesystem fs.FS, log logging.Logger) *Engine {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Engine{fs: filesystem, log: log, now: time.Now}
}

// Prune runs the age pass, then the count pass over a fresh listing.
// A missing directory has nothing to prune.
func (e *Engine) Prune(dir string, p Policy) (Report, error) {
	var rep Report

	if p.KeepDays > 0 {
		files, err := e.scan(dir, p.Protect)
		if err != nil {
			return rep, err
		}

		cutoff := e.now().Add(-time.Duration(p.KeepDays) * 24 * time.Hour)
		for _, f := range files {
			if f.MTime.Before(cutoff) && e.remove(f, "age") {
				rep.ByAge = append(rep.ByAge, f.Name)
			}
		}
	}

	if p.MaxFiles > 0 {
		files, err := e.scan(dir, p.Protect)
		if err != nil {
			return rep, err
		}

		if len(files) > p.MaxFiles {
			for _, f := range files[p.MaxFiles:] {
				if e.remove(f, "count") {
					rep.ByCount = append(rep.ByCount, f.Name)
				}
			}
		}
	}

	return rep, nil
}

func (e *Engine) remove(f fs.FileInfo, pass string) bool {
	if err := e.fs.Remove(f.Path); err != nil {
		e.log.Warn("retention: delete failed", "file", f.Name, "pass", pass, "error", err)
		return false
	}
	e.log.Info("retention: pruned", "file", f.Name, "pass", pass)
	return true
}

// scan lists prunable files newest first.
func (e *Engine) scan(dir string, protect []string) ([]fs.FileInfo, error) {
	entries, err := e.fs.List(dir)
	if err != nil {
		if fs.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	skip := make(map[string]struct{}, len(protect))
	for _, name := range protect {
		skip[name] = struct{}{}
	}

	var files []fs.FileInfo
	for _, ent := range entries {
		if ent.IsDir || fs.IsTemp(ent.Name) {
			continue
		}
		if _, ok := skip[ent.Name]; ok {
			continue
		}
		files = append(files, ent)
	}

	// Sort newest → oldest
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].MTime.After(files[j].MTime)
	})
	return files, nil
}
