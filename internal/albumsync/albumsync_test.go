package albumsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/album-mirror/internal/asset"
	"github.com/raoulx24/album-mirror/internal/config"
	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/httpx"
	"github.com/raoulx24/album-mirror/internal/logging"
	"github.com/raoulx24/album-mirror/internal/selector"
)

type fakeLister map[string][]asset.Descriptor

func (f fakeLister) ListAssets(_ context.Context, sharedURL string) ([]asset.Descriptor, error) {
	assets, ok := f[sharedURL]
	if !ok {
		return nil, errors.New("album unavailable")
	}
	return assets, nil
}

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	large := bytes.Repeat([]byte{0xAB}, 400*1024)
	tiny := bytes.Repeat([]byte{0x01}, 1024)

	mux := http.NewServeMux()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(large))
		})
	}
	mux.HandleFunc("/c.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "c.jpg", time.Time{}, bytes.NewReader(tiny))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func original(id, url string) asset.Descriptor {
	return asset.Descriptor{
		ID: id,
		Derivatives: map[string]asset.Derivative{
			"resoriginal": {URL: url, Width: 4032, Height: 3024},
			"thumb":       {URL: url + "?thumb", Width: 256, Height: 256},
		},
	}
}

func thumbsOnly(id, url string) asset.Descriptor {
	return asset.Descriptor{
		ID: id,
		Derivatives: map[string]asset.Derivative{
			"thumb": {URL: url, Width: 4032, Height: 3024},
		},
	}
}

func album(root string) config.AlbumConfig {
	return config.AlbumConfig{
		Name:           "family",
		SharedURL:      "https://www.icloud.com/sharedalbum/#family",
		DestRoot:       root,
		MediaSubfolder: "iCloud",
		AlbumSubfolder: "Family",
		IndexFilename:  "index.json",
	}
}

func newSyncer(l Lister, settings config.SyncConfig) *Syncer {
	return New(l, httpx.New(httpx.Options{}), fs.New(), settings, selector.DefaultRules(), logging.Nop())
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func TestSyncAlbum(t *testing.T) {
	srv := mediaServer(t)
	root := t.TempDir()
	a := album(root)

	lister := fakeLister{a.SharedURL: {
		original("1", srv.URL+"/a.jpg"),
		original("2", srv.URL+"/b.jpg"),
		original("3", srv.URL+"/c.jpg"),
		original("4", srv.URL+"/gone.jpg"),
		thumbsOnly("5", srv.URL+"/d.jpg"),
	}}

	res, err := newSyncer(lister, config.SyncConfig{MaxFiles: 500}).SyncAlbum(context.Background(), a)
	require.NoError(t, err)

	dir := filepath.Join(root, "iCloud", "Family")
	assert.Equal(t, dir, res.Dir)
	assert.Equal(t, 5, res.Assets)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, res.Downloaded)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Pruned)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "index.json"}, listDir(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "b.jpg", entries[0]["filename"])
}

func TestMirrorRemovesVanishedFiles(t *testing.T) {
	srv := mediaServer(t)
	root := t.TempDir()
	a := album(root)
	dir := filepath.Join(root, "iCloud", "Family")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.jpg"), []byte("x"), 0o644))

	lister := fakeLister{a.SharedURL: {original("1", srv.URL+"/a.jpg")}}
	res, err := newSyncer(lister, config.SyncConfig{MaxFiles: 500, MirrorMissing: true}).SyncAlbum(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, []string{"old.jpg"}, res.Mirrored)
	assert.Equal(t, []string{"a.jpg", "index.json"}, listDir(t, dir))
}

func TestNoDownloadsKeepsDirectory(t *testing.T) {
	srv := mediaServer(t)
	root := t.TempDir()
	a := album(root)
	dir := filepath.Join(root, "iCloud", "Family")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range []string{"x.jpg", "y.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}

	// every fetch fails, so the on-disk listing is the keep set
	lister := fakeLister{a.SharedURL: {original("1", srv.URL+"/gone.jpg")}}
	res, err := newSyncer(lister, config.SyncConfig{MaxFiles: 500, MirrorMissing: true}).SyncAlbum(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, res.Mirrored)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, listDir(t, dir))
}

func TestEmptyCatalogSkipsPrune(t *testing.T) {
	srv := mediaServer(t)
	root := t.TempDir()
	a := album(root)
	dir := filepath.Join(root, "iCloud", "Family")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range []string{"x.jpg", "y.jpg", "z.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}

	lister := fakeLister{a.SharedURL: {thumbsOnly("1", srv.URL+"/a.jpg")}}
	res, err := newSyncer(lister, config.SyncConfig{MaxFiles: 1, MirrorMissing: true}).SyncAlbum(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Pruned)
	assert.Len(t, listDir(t, dir), 3)
}

func TestCountPrune(t *testing.T) {
	srv := mediaServer(t)
	root := t.TempDir()
	a := album(root)
	dir := filepath.Join(root, "iCloud", "Family")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "stale.jpg")
	require.NoError(t, os.WriteFile(stale, []byte("s"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	lister := fakeLister{a.SharedURL: {original("1", srv.URL+"/a.jpg")}}
	res, err := newSyncer(lister, config.SyncConfig{MaxFiles: 1}).SyncAlbum(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, []string{"stale.jpg"}, res.Pruned)
	assert.Equal(t, []string{"a.jpg", "index.json"}, listDir(t, dir))
}

func TestRunSkipsBadAlbums(t *testing.T) {
	srv := mediaServer(t)
	root := t.TempDir()

	good := album(root)
	missing := config.AlbumConfig{Name: "broken", SharedURL: "https://x/#y"}
	unreachable := album(root)
	unreachable.SharedURL = "https://www.icloud.com/sharedalbum/#offline"
	unreachable.AlbumSubfolder = "Offline"

	lister := fakeLister{good.SharedURL: {original("1", srv.URL+"/a.jpg")}}
	sum := newSyncer(lister, config.SyncConfig{MaxFiles: 500}).Run(context.Background(),
		[]config.AlbumConfig{missing, unreachable, good})

	_, err := uuid.Parse(sum.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 1, sum.Invalid)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Albums, 2)
	assert.Equal(t, []string{"a.jpg"}, sum.Albums[1].Downloaded)
}

func TestSyncAlbumInvalid(t *testing.T) {
	_, err := newSyncer(fakeLister{}, config.SyncConfig{}).SyncAlbum(context.Background(), config.AlbumConfig{})
	assert.ErrorIs(t, err, config.ErrInvalidAlbum)
}
