package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartFsNotify re-reads the config file once its events have been quiet
// for the debounce interval. The parent directory is watched because
// editors and mounted config volumes swap the file in by rename.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w.mu.RLock()
	dir := filepath.Dir(w.path)
	debounce := w.debounce
	w.mu.RUnlock()

	if err := fw.Add(dir); err != nil {
		return err
	}

	quiet := time.NewTimer(debounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("fsnotify event stream closed")
			}
			if !w.touchesConfig(ev.Name) {
				continue
			}
			w.log.Debug("config event", "name", ev.Name, "op", ev.Op.String())
			quiet.Reset(debounce)

		case <-quiet.C:
			w.detect()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}

// touchesConfig matches the config file itself and the "..data" links a
// Kubernetes ConfigMap mount swaps on update.
func (w *Watcher) touchesConfig(name string) bool {
	w.mu.RLock()
	base := filepath.Base(w.path)
	w.mu.RUnlock()

	n := filepath.Base(name)
	return n == base || strings.HasPrefix(n, "..")
}
