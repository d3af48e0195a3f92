package workspace

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(t.TempDir(), logger)
	require.NoError(t, err)
	return m
}

func TestManagerOpen_UniqueDirectories(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Open()
	require.NoError(t, err)
	b, err := m.Open()
	require.NoError(t, err)

	assert.NotEqual(t, a.Path(), b.Path())

	info, err := os.Stat(a.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWorkspaceWrite_And_Close(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Open()
	require.NoError(t, err)

	require.NoError(t, ws.Write("main.py", "print(1)"))

	content, err := os.ReadFile(filepath.Join(ws.Path(), "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(content))

	require.NoError(t, ws.Close())

	_, err = os.Stat(ws.Path())
	assert.True(t, os.IsNotExist(err), "workspace must be gone after Close")
}

func TestWorkspaceWrite_RejectsEscapingNames(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Open()
	require.NoError(t, err)
	defer ws.Close() //nolint:errcheck

	for _, name := range []string{"", "..", "../out.txt", "sub/file.txt", ".hidden"} {
		assert.Error(t, ws.Write(name, "x"), "name %q must be rejected", name)
	}
}

func TestSweep_ReclaimsOldOrphans(t *testing.T) {
	m := newTestManager(t)

	orphan, err := m.Open()
	require.NoError(t, err)
	fresh, err := m.Open()
	require.NoError(t, err)
	defer fresh.Close() //nolint:errcheck

	// Age the orphan past the cutoff.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(orphan.Path(), old, old))

	m.Sweep(10 * time.Minute)

	_, err = os.Stat(orphan.Path())
	assert.True(t, os.IsNotExist(err), "orphan should be reclaimed")

	_, err = os.Stat(fresh.Path())
	assert.NoError(t, err, "fresh workspace must survive the sweep")
}
