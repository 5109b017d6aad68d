// Package ledger keeps the provenance record of downloaded files: a JSON
// array stored beside the media, newest entry first.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/raoulx24/album-mirror/internal/fs"
)

const DefaultFilename = "index.json"

type Entry struct {
	Filename     string    `json:"filename"`
	DownloadedAt time.Time `json:"downloaded_at"`
	URL          string    `json:"url"`
}

type Ledger struct {
	fs   fs.FS
	path string
	now  func() time.Time
}

// New returns the ledger stored at dir/name.
func New(filesystem fs.FS, dir, name string) *Ledger {
	if name == "" {
		name = DefaultFilename
	}
	return &Ledger{
		fs:   filesystem,
		path: filepath.Join(dir, name),
		now:  time.Now,
	}
}

func (l *Ledger) Path() string { return l.path }

// Entries reads the ledger. A missing file is an empty ledger.
func (l *Ledger) Entries() ([]Entry, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if fs.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding ledger %s: %w", l.path, err)
	}
	return entries, nil
}

// Record puts a new entry at the head of the ledger and rewrites the file.
// A ledger that cannot be read is left untouched.
func (l *Ledger) Record(ctx context.Context, filename, url string) error {
	entries, err := l.Entries()
	if err != nil {
		return err
	}

	entry := Entry{
		Filename:     filename,
		DownloadedAt: l.now().UTC().Truncate(time.Microsecond),
		URL:          url,
	}
	entries = append([]Entry{entry}, entries...)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return l.write(ctx, data)
}

func (l *Ledger) write(ctx context.Context, data []byte) error {
	tmp, err := l.fs.CreateTemp(filepath.Dir(l.path), fs.TempPrefix+"ledger-")
	if err != nil {
		return fmt.Errorf("creating ledger temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = l.fs.Remove(tmp.Name())
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = l.fs.Remove(tmp.Name())
		return fmt.Errorf("closing ledger: %w", err)
	}

	if err := l.fs.Rename(ctx, tmp.Name(), l.path); err != nil {
		_ = l.fs.Remove(tmp.Name())
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
