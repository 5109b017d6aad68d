package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raoulx24/album-mirror/internal/config"
	"github.com/raoulx24/album-mirror/internal/logging"
	"github.com/raoulx24/album-mirror/internal/mailbox"
	"github.com/raoulx24/album-mirror/internal/scheduler"
	"github.com/raoulx24/album-mirror/internal/watcher"
	"github.com/raoulx24/album-mirror/internal/worker"
)

func daemonCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync on a schedule and reload config on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := scheduler.Validate(cfg.Schedule); err != nil {
				return err
			}
			return runDaemon(cmd, opts, cfg, newLogger(cfg, cmd.ErrOrStderr()))
		},
	}
}

func runDaemon(cmd *cobra.Command, opts *options, cfg *config.Config, log logging.Logger) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Info("shutting down, waiting for the current run")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Mailbox for sync triggers
	mb := mailbox.New[worker.Job]()

	// Worker (the only goroutine running syncs)
	w := worker.New(cfg, func(c *config.Config) worker.Runner {
		return newSyncer(c, log)
	}, mb, log)

	// Schedule
	sched := scheduler.New(func() { mb.Put(worker.NewJob("schedule")) }, log)
	if err := sched.Start(cfg.Schedule); err != nil {
		return err
	}
	defer sched.Stop()

	var reloadMu sync.Mutex
	reload := func(reason string) {
		reloadMu.Lock()
		defer reloadMu.Unlock()

		newCfg, err := loadConfig(cmd, opts)
		if err != nil {
			log.Error("config reload failed, keeping previous config", "error", err)
			return
		}
		if err := sched.Reschedule(newCfg.Schedule); err != nil {
			log.Error("config reload failed, keeping previous config", "error", err)
			return
		}

		w.UpdateConfig(newCfg)
		log.Info("config reloaded", "reason", reason, "albums", len(newCfg.Albums))
		mb.Put(worker.NewJob(reason))
	}

	// Config file watcher
	if cfg.ConfigReload.Enabled {
		if _, err := os.Stat(opts.configPath); err != nil {
			log.Warn("config reload enabled but config file unavailable", "path", opts.configPath, "error", err)
		} else {
			watch := watcher.New(opts.configPath, cfg.ConfigReload, log, func() { reload("config change") })
			go func() {
				if err := watch.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	// Hot reload on SIGHUP
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGHUP)
		defer signal.Stop(sigCh)

		for {
			select {
			case <-sigCh:
				reload("sighup")
			case <-ctx.Done():
				return
			}
		}
	}()

	mb.Put(worker.NewJob("startup"))
	log.Info("daemon started", "schedule", cfg.Schedule, "albums", len(cfg.Albums))

	w.Start(ctx)
	log.Info("exit complete")
	return nil
}
