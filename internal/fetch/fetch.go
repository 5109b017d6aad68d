// Package fetch downloads selected renditions into an album directory. Two
// size gates catch thumbnails that slipped past selection; files only appear
// under their final name once they are complete and large enough.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"

	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/ledger"
	"github.com/raoulx24/album-mirror/internal/logging"
)

// Doer is the slice of httpx.Client the fetcher uses.
type Doer interface {
	Head(ctx context.Context, url string) (*http.Response, error)
	Get(ctx context.Context, url string) (*http.Response, error)
}

type Options struct {
	MinBytes       int64
	LedgerFilename string
}

type Fetcher struct {
	http Doer
	fs   fs.FS
	opts Options
	log  logging.Logger
}

// Result describes an accepted download.
type Result struct {
	Filename string
	Path     string
	Bytes    int64
}

func New(client Doer, filesystem fs.FS, opts Options, log logging.Logger) *Fetcher {
	if filesystem == nil {
		filesystem = fs.New()
	}
	if opts.LedgerFilename == "" {
		opts.LedgerFilename = ledger.DefaultFilename
	}
	return &Fetcher{http: client, fs: filesystem, opts: opts, log: log}
}

// Fetch downloads url into dir. Errors are either *RejectedError or
// *NetworkError; neither should stop the rest of the album.
func (f *Fetcher) Fetch(ctx context.Context, url, dir string) (Result, error) {
	if err := f.fs.MkdirAll(dir); err != nil {
		return Result{}, &NetworkError{URL: url, Err: fmt.Errorf("creating %s: %w", dir, err)}
	}

	if n, ok := f.probe(ctx, url); ok && n < f.opts.MinBytes {
		return Result{}, &RejectedError{URL: url, Stage: StagePreflight, Bytes: n, Min: f.opts.MinBytes}
	}

	resp, err := f.http.Get(ctx, url)
	if err != nil {
		return Result{}, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	name := filenameFor(resp.Header.Get("Content-Disposition"), url)
	if name == "" {
		return Result{}, &NetworkError{URL: url, Err: errors.New("cannot derive a file name")}
	}
	if name == f.opts.LedgerFilename || fs.IsTemp(name) {
		return Result{}, &NetworkError{URL: url, Err: fmt.Errorf("file name %q is reserved", name)}
	}
	final := filepath.Join(dir, name)

	n, err := f.stream(ctx, resp.Body, dir, final, url)
	if err != nil {
		return Result{}, err
	}

	f.log.Info("downloaded", "file", name, "size", bytesize.New(float64(n)).String())

	// a broken ledger never costs us the file
	led := ledger.New(f.fs, dir, f.opts.LedgerFilename)
	if err := led.Record(ctx, name, url); err != nil {
		f.log.Warn("ledger update failed", "ledger", led.Path(), "error", err)
	} else {
		f.log.Debug("ledger updated", "ledger", led.Path(), "file", name)
	}

	return Result{Filename: name, Path: final, Bytes: n}, nil
}

// probe asks for the declared length. ok is false when the probe failed or
// the server did not say.
func (f *Fetcher) probe(ctx context.Context, url string) (int64, bool) {
	resp, err := f.http.Head(ctx, url)
	if err != nil {
		f.log.Debug("size probe failed", "url", url, "error", err)
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(resp.Header.Get("Content-Length")), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// stream copies body into a temp file in dir and promotes it to final only
// when it reached the size floor.
func (f *Fetcher) stream(ctx context.Context, body io.Reader, dir, final, url string) (int64, error) {
	tmp, err := f.fs.CreateTemp(dir, fs.TempPrefix)
	if err != nil {
		return 0, &NetworkError{URL: url, Err: fmt.Errorf("creating temp file: %w", err)}
	}

	n, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()

	discard := func() {
		if err := f.fs.Remove(tmp.Name()); err != nil && !fs.IsNotExist(err) {
			f.log.Warn("removing temp file failed", "path", tmp.Name(), "error", err)
		}
	}

	switch {
	case copyErr != nil:
		discard()
		return 0, &NetworkError{URL: url, Err: fmt.Errorf("reading body: %w", copyErr)}
	case closeErr != nil:
		discard()
		return 0, &NetworkError{URL: url, Err: fmt.Errorf("writing %s: %w", tmp.Name(), closeErr)}
	case n < f.opts.MinBytes:
		discard()
		return n, &RejectedError{URL: url, Stage: StageTransfer, Bytes: n, Min: f.opts.MinBytes}
	}

	if err := f.fs.Rename(ctx, tmp.Name(), final); err != nil {
		discard()
		return 0, &NetworkError{URL: url, Err: fmt.Errorf("promoting %s: %w", final, err)}
	}
	return n, nil
}
