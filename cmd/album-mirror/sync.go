package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func syncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync every configured album once",
		Long: `Sync every configured album once and exit.

Albums that are misconfigured or fail are logged and skipped; the command
still exits 0 so that one broken album does not fail a scheduled job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			newSyncer(cfg, log).Run(ctx, cfg.Albums)
			return nil
		},
	}
}
