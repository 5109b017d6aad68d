package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/raoulx24/album-mirror/internal/ledger"
	"github.com/raoulx24/album-mirror/internal/selector"
)

const (
	DefaultMaxFiles       = 500
	DefaultTimeout        = 40 // seconds
	DefaultMediaSubfolder = "iCloud"
	DefaultDestMode       = "media"
	DefaultSchedule       = "@every 1h"
	DefaultPath           = "config.yaml"
)

var ErrInvalidAlbum = errors.New("invalid album")

type Config struct {
	Sync         SyncConfig      `yaml:"sync"`
	Thresholds   ThresholdConfig `yaml:"thresholds"`
	Albums       []AlbumConfig   `yaml:"albums"`
	Schedule     string          `yaml:"schedule"` // cron spec for daemon mode
	Logging      LoggingConfig   `yaml:"logging"`
	ConfigReload ReloadConfig    `yaml:"config_reload"`
}

// SyncConfig holds the settings shared by every album.
type SyncConfig struct {
	KeepDays      int  `yaml:"keep_days"`
	MaxFiles      int  `yaml:"max_files"`
	Timeout       int  `yaml:"timeout"` // seconds, per request
	MirrorMissing bool `yaml:"mirror_missing"`
}

type ThresholdConfig struct {
	MinLongEdge   int      `yaml:"min_long_edge"`
	MinFileSize   ByteSize `yaml:"min_file_size"` // e.g. "300KB"
	ThumbHints    []string `yaml:"thumb_hints"`
	PreferredKeys []string `yaml:"preferred_keys"`
	VideoExts     []string `yaml:"video_exts"`
}

type AlbumConfig struct {
	Name           string `yaml:"name"`
	SharedURL      string `yaml:"shared_url"`
	DestMode       string `yaml:"dest_mode"` // "media", "share", "config_www"
	DestRoot       string `yaml:"dest_root"` // replaces the dest_mode base
	MediaSubfolder string `yaml:"media_subfolder"`
	AlbumSubfolder string `yaml:"album_subfolder"`
	IndexFilename  string `yaml:"index_filename"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "text"
}

type ReloadConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Mode         string        `yaml:"mode"`          // "auto", "poll", "fsnotify"
	PollInterval time.Duration `yaml:"poll_interval"` // e.g. 5s
	Debounce     time.Duration `yaml:"debounce"`      // e.g. 500ms
}

// Default returns a config with every default applied and no albums.
// Load decodes on top of it, so keys absent from the file keep these values
// while explicit zeroes (max_files: 0) stay zero.
func Default() *Config {
	cfg := &Config{Sync: SyncConfig{MaxFiles: DefaultMaxFiles}}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = DefaultTimeout
	}

	t := &c.Thresholds
	if t.MinLongEdge <= 0 {
		t.MinLongEdge = selector.DefaultMinLongEdge
	}
	if t.MinFileSize <= 0 {
		t.MinFileSize = selector.DefaultMinBytes
	}
	// an empty hint list would let thumbnails through
	if len(t.ThumbHints) == 0 {
		t.ThumbHints = append([]string(nil), selector.DefaultThumbHints...)
	}
	if t.PreferredKeys == nil {
		t.PreferredKeys = append([]string(nil), selector.DefaultPreferredKeys...)
	}
	if t.VideoExts == nil {
		t.VideoExts = append([]string(nil), selector.DefaultVideoExts...)
	}

	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	r := &c.ConfigReload
	if r.Mode == "" {
		r.Mode = "auto"
	}
	if r.PollInterval <= 0 {
		r.PollInterval = 5 * time.Second
	}
	if r.Debounce <= 0 {
		r.Debounce = 500 * time.Millisecond
	}

	for i := range c.Albums {
		c.Albums[i].applyDefaults()
	}
}

func (a *AlbumConfig) applyDefaults() {
	if a.DestMode == "" {
		a.DestMode = DefaultDestMode
	}
	if a.MediaSubfolder == "" {
		a.MediaSubfolder = DefaultMediaSubfolder
	}
	if a.IndexFilename == "" {
		a.IndexFilename = ledger.DefaultFilename
	}
}

// RequestTimeout is the uniform per-request HTTP timeout.
func (s SyncConfig) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Rules converts the thresholds into selector rules.
func (t ThresholdConfig) Rules() selector.Rules {
	r := selector.DefaultRules()
	if t.MinLongEdge > 0 {
		r.MinLongEdge = t.MinLongEdge
	}
	if t.MinFileSize > 0 {
		r.MinBytes = int64(t.MinFileSize)
	}
	if len(t.ThumbHints) > 0 {
		r.ThumbHints = t.ThumbHints
	}
	if t.PreferredKeys != nil {
		r.PreferredKeys = t.PreferredKeys
	}
	if t.VideoExts != nil {
		r.VideoExts = t.VideoExts
	}
	return r
}

// DisplayName is the album name used in logs.
func (a AlbumConfig) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "Unnamed"
}

// Validate reports a missing required field as ErrInvalidAlbum.
func (a AlbumConfig) Validate() error {
	switch {
	case a.SharedURL == "":
		return fmt.Errorf("%w %s: missing shared_url", ErrInvalidAlbum, a.DisplayName())
	case a.AlbumSubfolder == "":
		return fmt.Errorf("%w %s: missing album_subfolder", ErrInvalidAlbum, a.DisplayName())
	}
	return nil
}

// DestDir resolves the album's destination directory.
func (a AlbumConfig) DestDir() string {
	base := a.DestRoot
	if base == "" {
		switch a.DestMode {
		case "share":
			base = "/share"
		case "config_www":
			base = "/config/www"
		default:
			base = "/media"
		}
	}
	return filepath.Join(base, a.MediaSubfolder, a.AlbumSubfolder)
}
