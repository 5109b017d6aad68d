package watcher

import (
	"github.com/raoulx24/album-mirror/internal/config"
)

// UpdateConfig stores new watch settings; they take effect on the next Start.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.interval = cfg.PollInterval
	w.mode = cfg.Mode
	w.debounce = cfg.Debounce
}
