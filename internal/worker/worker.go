// Package worker drains the daemon mailbox and runs album syncs against the
// current config snapshot.
package worker

import (
	"context"
	"sync"

	"github.com/raoulx24/album-mirror/internal/albumsync"
	"github.com/raoulx24/album-mirror/internal/config"
	"github.com/raoulx24/album-mirror/internal/logging"
	"github.com/raoulx24/album-mirror/internal/mailbox"
)

// Runner is what the worker drives; *albumsync.Syncer satisfies it.
type Runner interface {
	Run(ctx context.Context, albums []config.AlbumConfig) albumsync.Summary
}

// Factory builds a Runner for a config snapshot.
type Factory func(cfg *config.Config) Runner

// Worker is the only goroutine that runs syncs in daemon mode.
type Worker struct {
	mu     sync.RWMutex
	cfg    *config.Config
	runner Runner
	build  Factory
	log    logging.Logger
	mb     *mailbox.Mailbox[Job]
}

// New creates a worker using the initial config and mailbox.
func New(cfg *config.Config, build Factory, mb *mailbox.Mailbox[Job], log logging.Logger) *Worker {
	log.Debug("creating worker")
	return &Worker{
		cfg:    cfg,
		runner: build(cfg),
		build:  build,
		log:    log,
		mb:     mb,
	}
}

// Start runs the worker loop using mailbox semantics until ctx ends.
// A run in progress when ctx ends finishes its current album step first.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("starting worker")
	for {
		job, ok := w.mb.Take(ctx)
		if !ok {
			w.log.Info("worker stopped")
			return
		}
		w.Handle(ctx, job)
	}
}

// Handle runs every album of the current snapshot once.
func (w *Worker) Handle(ctx context.Context, job Job) albumsync.Summary {
	w.mu.RLock()
	cfg, runner := w.cfg, w.runner
	w.mu.RUnlock()

	w.log.Info("sync triggered", "reason", job.Reason, "queued_at", job.At)
	return runner.Run(ctx, cfg.Albums)
}

// UpdateConfig hot-reloads albums and sync settings. The run in progress,
// if any, keeps the snapshot it started with.
func (w *Worker) UpdateConfig(cfg *config.Config) {
	runner := w.build(cfg)

	w.mu.Lock()
	w.cfg = cfg
	w.runner = runner
	w.mu.Unlock()

	w.log.Debug("worker config updated", "albums", len(cfg.Albums))
}

// Config returns the current snapshot.
func (w *Worker) Config() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}
