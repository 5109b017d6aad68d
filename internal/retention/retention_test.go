package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/album-mirror/internal/fs"
	"github.com/raoulx24/album-mirror/internal/logging"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// writeAged creates name in dir with a modification time age before base.
func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	mt := base.Add(-age)
	require.NoError(t, os.Chtimes(p, mt, mt))
}

func remaining(t *testing.T, dir string) []string {
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

func newEngine() *Engine {
	e := New(fs.New(), logging.Nop())
	e.now = func() time.Time { return base }
	return e
}

func TestCountKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		writeAged(t, dir, fmt.Sprintf("f%02d.jpg", i), time.Duration(i)*time.Hour)
	}

	rep, err := newEngine().Prune(dir, Policy{MaxFiles: 5})
	require.NoError(t, err)
	assert.Len(t, rep.ByCount, 5)
	assert.Empty(t, rep.ByAge)
	assert.Equal(t, []string{"f00.jpg", "f01.jpg", "f02.jpg", "f03.jpg", "f04.jpg"}, remaining(t, dir))
}

func TestCountBelowLimitKeepsAll(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		writeAged(t, dir, fmt.Sprintf("f%d.jpg", i), time.Duration(i)*time.Hour)
	}

	_, err := newEngine().Prune(dir, Policy{MaxFiles: 5})
	require.NoError(t, err)
	assert.Len(t, remaining(t, dir), 3)
}

func TestAgeThenCount(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "new1.jpg", time.Hour)
	writeAged(t, dir, "new2.jpg", 2*time.Hour)
	writeAged(t, dir, "new3.jpg", 3*time.Hour)
	writeAged(t, dir, "old1.jpg", 10*24*time.Hour)
	writeAged(t, dir, "old2.jpg", 11*24*time.Hour)

	rep, err := newEngine().Prune(dir, Policy{KeepDays: 7, MaxFiles: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old1.jpg", "old2.jpg"}, rep.ByAge)
	// survivors of the age pass are what the count pass sees
	assert.Equal(t, []string{"new3.jpg"}, rep.ByCount)
	assert.Equal(t, []string{"new1.jpg", "new2.jpg"}, remaining(t, dir))
}

func TestDisabledPolicyIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "ancient.jpg", 1000*24*time.Hour)

	rep, err := newEngine().Prune(dir, Policy{})
	require.NoError(t, err)
	assert.Empty(t, rep.ByAge)
	assert.Empty(t, rep.ByCount)
	assert.Equal(t, []string{"ancient.jpg"}, remaining(t, dir))
}

func TestProtectedAndTempFilesSurvive(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "index.json", 100*24*time.Hour)
	writeAged(t, dir, fs.TempPrefix+"123", 100*24*time.Hour)
	writeAged(t, dir, "a.jpg", time.Hour)
	writeAged(t, dir, "b.jpg", 2*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	_, err := newEngine().Prune(dir, Policy{KeepDays: 1, MaxFiles: 1, Protect: []string{"index.json"}})
	require.NoError(t, err)
	assert.Equal(t, []string{fs.TempPrefix + "123", "a.jpg", "index.json", "sub"}, remaining(t, dir))
}

func TestIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeAged(t, dir, fmt.Sprintf("f%d.jpg", i), time.Duration(i)*24*time.Hour)
	}
	e := newEngine()
	p := Policy{KeepDays: 4, MaxFiles: 3}

	_, err := e.Prune(dir, p)
	require.NoError(t, err)
	first := remaining(t, dir)

	rep, err := e.Prune(dir, p)
	require.NoError(t, err)
	assert.Empty(t, rep.ByAge)
	assert.Empty(t, rep.ByCount)
	assert.Equal(t, first, remaining(t, dir))
	assert.Equal(t, []string{"f0.jpg", "f1.jpg", "f2.jpg"}, first)
}

func TestMissingDirectory(t *testing.T) {
	_, err := newEngine().Prune(filepath.Join(t.TempDir(), "gone"), Policy{KeepDays: 1, MaxFiles: 1})
	assert.NoError(t, err)
}
