// Package watcher monitors the config file and reports when it changed.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/album-mirror/internal/config"
	"github.com/raoulx24/album-mirror/internal/fsprobe"
	"github.com/raoulx24/album-mirror/internal/logging"
)

// Watcher observes one file and calls onChange after it was modified.
type Watcher struct {
	mu sync.RWMutex

	path     string
	interval time.Duration
	mode     string
	debounce time.Duration

	log logging.Logger

	lastModTime time.Time
	lastSize    int64

	onChange func()
}

// New creates a watcher for path. The current state of the file is the
// baseline, so an unchanged file never fires.
func New(path string, cfg config.ReloadConfig, log logging.Logger, onChange func()) *Watcher {
	w := &Watcher{
		path:     path,
		interval: cfg.PollInterval,
		mode:     cfg.Mode,
		debounce: cfg.Debounce,
		log:      log,
		onChange: onChange,
	}
	if info, err := os.Stat(path); err == nil {
		w.lastModTime = info.ModTime()
		w.lastSize = info.Size()
	}
	return w
}

// Start chooses the correct watching strategy based on config and blocks
// until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	mode := w.mode
	dir := filepath.Dir(w.path)
	w.mu.RUnlock()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobe.Probe(dir, 0)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling config", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}
