package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/httpx"
	"github.com/raoulx24/album-mirror/internal/ledger"
	"github.com/raoulx24/album-mirror/internal/logging"
)

const minBytes = 1024

type server struct {
	*httptest.Server
	gets atomic.Int32
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{}
	big := bytes.Repeat([]byte("x"), 4*minBytes)
	small := bytes.Repeat([]byte("y"), 100)

	mux := http.NewServeMux()
	serve := func(body []byte, announce bool, headers map[string]string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			if announce {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			}
			if r.Method == http.MethodHead {
				return
			}
			s.gets.Add(1)
			_, _ = w.Write(body)
		}
	}

	mux.HandleFunc("/photos/IMG_0001.JPG", serve(big, true, nil))
	mux.HandleFunc("/photos/thumb-ish.jpg", serve(small, true, nil))
	mux.HandleFunc("/photos/quiet.jpg", serve(small, false, nil))
	mux.HandleFunc("/photos/named", serve(big, true, map[string]string{
		"Content-Disposition": `attachment; filename="../../etc/IMG_0042.HEIC"`,
	}))
	mux.HandleFunc("/photos/index.json", serve(big, true, nil))
	mux.HandleFunc("/photos/nohead.mov", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.gets.Add(1)
		_, _ = w.Write(big)
	})
	mux.HandleFunc("/photos/missing.jpg", http.NotFound)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newFetcher() *Fetcher {
	return New(httpx.New(httpx.Options{}), fs.New(), Options{MinBytes: minBytes}, logging.Nop())
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetchAcceptsLargeFile(t *testing.T) {
	srv := newServer(t)
	dir := filepath.Join(t.TempDir(), "album")
	url := srv.URL + "/photos/IMG_0001.JPG?o=abc"

	res, err := newFetcher().Fetch(context.Background(), url, dir)
	require.NoError(t, err)
	assert.Equal(t, "IMG_0001.JPG", res.Filename)
	assert.EqualValues(t, 4*minBytes, res.Bytes)

	info, err := os.Stat(filepath.Join(dir, "IMG_0001.JPG"))
	require.NoError(t, err)
	assert.EqualValues(t, 4*minBytes, info.Size())

	entries, err := ledger.New(fs.New(), dir, "").Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "IMG_0001.JPG", entries[0].Filename)
	assert.Equal(t, url, entries[0].URL)

	assert.ElementsMatch(t, []string{"IMG_0001.JPG", ledger.DefaultFilename}, listNames(t, dir))
}

func TestPreflightRejectsWithoutTransfer(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	_, err := newFetcher().Fetch(context.Background(), srv.URL+"/photos/thumb-ish.jpg", dir)

	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, StagePreflight, rej.Stage)
	assert.EqualValues(t, 100, rej.Bytes)
	assert.Zero(t, srv.gets.Load())
	assert.Empty(t, listNames(t, dir))
}

func TestTransferGateRejectsUndersized(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	f := newFetcher()

	// repeated runs stay clean
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), srv.URL+"/photos/quiet.jpg", dir)

		var rej *RejectedError
		require.True(t, errors.As(err, &rej))
		assert.Equal(t, StageTransfer, rej.Stage)
		assert.True(t, IsRejected(err))
		assert.Empty(t, listNames(t, dir))
	}
}

func TestProbeFailureFallsThroughToGet(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	res, err := newFetcher().Fetch(context.Background(), srv.URL+"/photos/nohead.mov", dir)
	require.NoError(t, err)
	assert.Equal(t, "nohead.mov", res.Filename)
}

func TestDispositionNameWins(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	res, err := newFetcher().Fetch(context.Background(), srv.URL+"/photos/named", dir)
	require.NoError(t, err)
	assert.Equal(t, "IMG_0042.HEIC", res.Filename)
	assert.Equal(t, filepath.Join(dir, "IMG_0042.HEIC"), res.Path)
}

func TestNetworkErrors(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	f := newFetcher()

	_, err := f.Fetch(context.Background(), srv.URL+"/photos/missing.jpg", dir)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.False(t, IsRejected(err))

	var httpErr *httpx.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	_, err = f.Fetch(context.Background(), "http://127.0.0.1:1/nothing.jpg", dir)
	require.True(t, errors.As(err, &netErr))
	assert.Empty(t, listNames(t, dir))
}

func TestLedgerNameIsReserved(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	_, err := newFetcher().Fetch(context.Background(), srv.URL+"/photos/index.json", dir)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Empty(t, listNames(t, dir))
}

func TestBrokenLedgerDoesNotFailDownload(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.DefaultFilename), []byte("[{"), 0o644))

	res, err := newFetcher().Fetch(context.Background(), srv.URL+"/photos/IMG_0001.JPG", dir)
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestSlowDownloadCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		chunk := bytes.Repeat([]byte("z"), 64<<10)
		for i := 0; i < 8; i++ {
			_, _ = w.Write(chunk)
			w.(http.Flusher).Flush()
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer srv.Close()

	client := httpx.New(httpx.Options{Timeout: 300 * time.Millisecond})
	f := New(client, fs.New(), Options{MinBytes: minBytes}, logging.Nop())

	res, err := f.Fetch(context.Background(), srv.URL+"/clips/long.mov", t.TempDir())
	require.NoError(t, err)
	assert.EqualValues(t, 8*64<<10, res.Bytes)
	assert.FileExists(t, res.Path)
}

func TestFilenameFor(t *testing.T) {
	tests := []struct {
		cd, url, want string
	}{
		{"", "https://h/a/b/IMG_1.JPG?x=1", "IMG_1.JPG"},
		{`attachment; filename="clip.mov"`, "https://h/x", "clip.mov"},
		{`attachment; filename*=UTF-8''caf%C3%A9.jpg`, "https://h/x", "café.jpg"},
		{`inline; filename=weird name.jpg; size=3`, "https://h/x", "weird name.jpg"},
		{`attachment; filename="..\..\evil.jpg"`, "https://h/x", "evil.jpg"},
		{"", "https://h/", ""},
		{"", "https://h/%2e%2e", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filenameFor(tt.cd, tt.url), "cd=%q url=%q", tt.cd, tt.url)
	}
}
