package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raoulx24/album-mirror/internal/albumsync"
	"github.com/raoulx24/album-mirror/internal/config"
	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/httpx"
	"github.com/raoulx24/album-mirror/internal/icloud"
	"github.com/raoulx24/album-mirror/internal/logging"
)

// version is set via ldflags during build
var version = "dev"

// options hold the persistent flags. Sync settings only override the config
// file when set explicitly.
type options struct {
	configPath    string
	keepDays      int
	maxFiles      int
	timeout       int
	mirrorMissing bool
	albums        string
	debug         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&options{})
}

func buildRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "album-mirror",
		Short:         "Mirror iCloud shared albums to local storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addFlags(rootCmd.PersistentFlags(), opts)

	rootCmd.AddCommand(syncCmd(opts))
	rootCmd.AddCommand(daemonCmd(opts))
	rootCmd.AddCommand(selectCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func addFlags(flags *pflag.FlagSet, o *options) {
	flags.StringVar(&o.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	flags.IntVar(&o.keepDays, "keep-days", 0, "Delete files older than this many days (0 = off)")
	flags.IntVar(&o.maxFiles, "max-files", config.DefaultMaxFiles, "Keep at most this many files per album (0 = off)")
	flags.IntVar(&o.timeout, "timeout", config.DefaultTimeout, "Per-request HTTP timeout in seconds")
	flags.BoolVar(&o.mirrorMissing, "mirror-missing", false, "Delete local files that left the album")
	flags.StringVar(&o.albums, "albums", "", "Albums as YAML, replaces the configured list")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug logging")
}

// loadConfig reads the config file and layers the explicitly set flags on
// top. Without --config a missing default file is not an error.
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, err
		}
		cfg = config.Default()
	}

	flags := cmd.Flags()
	ov := config.Overrides{Albums: o.albums, Debug: o.debug}
	if flags.Changed("keep-days") {
		ov.KeepDays = &o.keepDays
	}
	if flags.Changed("max-files") {
		ov.MaxFiles = &o.maxFiles
	}
	if flags.Changed("timeout") {
		ov.Timeout = &o.timeout
	}
	if flags.Changed("mirror-missing") {
		ov.MirrorMissing = &o.mirrorMissing
	}
	if err := cfg.Apply(ov); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) logging.Logger {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Out:    out,
	})
}

// newSyncer wires the album pipeline for one config snapshot.
func newSyncer(cfg *config.Config, log logging.Logger) *albumsync.Syncer {
	client := httpx.New(httpx.Options{
		Timeout: cfg.Sync.RequestTimeout(),
		Log:     log,
	})
	lister := icloud.New(client, icloud.Options{}, log)
	return albumsync.New(lister, client, fs.New(), cfg.Sync, cfg.Thresholds.Rules(), log)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "album-mirror", version)
		},
	}
}
