package watcher

import (
	"os"
)

// detect calls onChange if the file's mtime or size moved since last seen.
func (w *Watcher) detect() {
	w.mu.RLock()
	path := w.path
	last, lastSize := w.lastModTime, w.lastSize
	w.mu.RUnlock()

	info, err := os.Stat(path)
	if err != nil {
		w.log.Debug("config stat failed", "path", path, "error", err)
		return
	}

	if info.ModTime().Equal(last) && info.Size() == lastSize {
		return
	}

	w.mu.Lock()
	w.lastModTime = info.ModTime()
	w.lastSize = info.Size()
	w.mu.Unlock()

	w.log.Info("config file changed", "path", path)
	w.onChange()
}
