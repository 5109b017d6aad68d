// Package albumsync runs the per-album pipeline: list the catalog, select
// one rendition per asset, fetch, prune and optionally mirror deletions.
package albumsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/raoulx24/album-mirror/internal/asset"
	"github.com/raoulx24/album-mirror/internal/config"
	"github.com/raoulx24/album-mirror/internal/fetch"
	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/logging"
	"github.com/raoulx24/album-mirror/internal/mirror"
	"github.com/raoulx24/album-mirror/internal/retention"
	"github.com/raoulx24/album-mirror/internal/selector"
)

// Lister produces an album's catalog.
type Lister interface {
	ListAssets(ctx context.Context, sharedURL string) ([]asset.Descriptor, error)
}

type Syncer struct {
	lister    Lister
	http      fetch.Doer
	fs        fs.FS
	settings  config.SyncConfig
	rules     selector.Rules
	retention *retention.Engine
	mirror    *mirror.Reconciler
	log       logging.Logger
}

func New(lister Lister, client fetch.Doer, filesystem fs.FS, settings config.SyncConfig, rules selector.Rules, log logging.Logger) *Syncer {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Syncer{
		lister:    lister,
		http:      client,
		fs:        filesystem,
		settings:  settings,
		rules:     rules,
		retention: retention.New(filesystem, log),
		mirror:    mirror.New(filesystem, log),
		log:       log,
	}
}

// Result counts what one album round did.
type Result struct {
	Album      string
	Dir        string
	Assets     int
	Skipped    int // no full-size rendition
	Downloaded []string
	Rejected   int // failed a size gate
	Failed     int
	Pruned     []string
	Mirrored   []string
}

// Summary aggregates a multi-album run.
type Summary struct {
	RunID   string
	Albums  []Result
	Invalid int
	Failed  int
}

// Run syncs albums one after another. Invalid albums are skipped and a
// failing album never stops the others.
func (s *Syncer) Run(ctx context.Context, albums []config.AlbumConfig) Summary {
	sum := Summary{RunID: uuid.NewString()}
	log := s.log.With("run_id", sum.RunID)

	if len(albums) == 0 {
		log.Warn("no valid albums configured, skipping sync")
		return sum
	}

	log.Info("sync run started", "albums", len(albums))
	for _, album := range albums {
		if ctx.Err() != nil {
			log.Warn("sync run canceled")
			break
		}

		res, err := s.syncAlbum(ctx, album, log)
		switch {
		case errors.Is(err, config.ErrInvalidAlbum):
			log.Error("skipping album", "album", album.DisplayName(), "error", err)
			sum.Invalid++
			continue
		case err != nil:
			log.Error("album sync failed", "album", album.DisplayName(), "error", err)
			sum.Failed++
		}
		sum.Albums = append(sum.Albums, res)
	}
	log.Info("sync run finished", "albums", len(sum.Albums), "invalid", sum.Invalid, "failed", sum.Failed)
	return sum
}

// SyncAlbum runs one album round. Only configuration errors
// (config.ErrInvalidAlbum) and catalog failures are returned; per-asset
// problems are counted in the result.
func (s *Syncer) SyncAlbum(ctx context.Context, album config.AlbumConfig) (Result, error) {
	return s.syncAlbum(ctx, album, s.log)
}

func (s *Syncer) syncAlbum(ctx context.Context, album config.AlbumConfig, log logging.Logger) (Result, error) {
	res := Result{Album: album.DisplayName()}
	if err := album.Validate(); err != nil {
		return res, err
	}

	res.Dir = album.DestDir()
	log = log.With("album", res.Album, "dir", res.Dir)

	if err := s.fs.MkdirAll(res.Dir); err != nil {
		return res, fmt.Errorf("creating %s: %w", res.Dir, err)
	}

	assets, err := s.lister.ListAssets(ctx, album.SharedURL)
	if err != nil {
		return res, fmt.Errorf("listing album: %w", err)
	}
	res.Assets = len(assets)

	sel := selector.New(s.rules, log)
	var urls []string
	for _, a := range assets {
		url, ok := sel.Select(a)
		if !ok {
			res.Skipped++
			continue
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		log.Warn("no media URLs found", "assets", res.Assets)
		return res, nil
	}
	log.Info("found media URLs", "count", len(urls), "assets", res.Assets)

	fetcher := fetch.New(s.http, s.fs, fetch.Options{
		MinBytes:       s.rules.MinBytes,
		LedgerFilename: album.IndexFilename,
	}, log)

	for _, url := range urls {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		got, err := fetcher.Fetch(ctx, url, res.Dir)
		switch {
		case fetch.IsRejected(err):
			log.Warn("skipping likely thumbnail", "error", err)
			res.Rejected++
		case err != nil:
			log.Error("download failed", "error", err)
			res.Failed++
		default:
			res.Downloaded = append(res.Downloaded, got.Filename)
		}
	}

	rep, err := s.retention.Prune(res.Dir, retention.Policy{
		KeepDays: s.settings.KeepDays,
		MaxFiles: s.settings.MaxFiles,
		Protect:  []string{album.IndexFilename},
	})
	if err != nil {
		log.Error("prune failed", "error", err)
	}
	res.Pruned = append(rep.ByAge, rep.ByCount...)

	if s.settings.MirrorMissing {
		keep, err := s.mirror.KeepSet(res.Dir, res.Downloaded)
		if err == nil {
			res.Mirrored, err = s.mirror.Reconcile(res.Dir, keep, album.IndexFilename)
		}
		if err != nil {
			log.Error("mirror failed", "error", err)
		}
	}

	log.Info("album synced",
		"downloaded", len(res.Downloaded),
		"rejected", res.Rejected,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"pruned", len(res.Pruned),
		"mirrored", len(res.Mirrored),
	)
	return res, nil
}
