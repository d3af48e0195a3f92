// Package workspace manages the per-request filesystem scope: one uniquely
// named directory that holds everything a single execution materializes, and
// that is removed on every exit path. Removal failures are logged, never
// escalated — a background sweep reclaims anything left behind.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
)

// Manager creates workspaces under a single root directory.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager ensures the root directory exists and returns a Manager.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolving root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating root %q: %w", abs, err)
	}
	return &Manager{root: abs, logger: logger}, nil
}

// Root returns the absolute root directory.
func (m *Manager) Root() string { return m.root }

// Open allocates a fresh workspace. xid values are unique across concurrent
// calls, so two executions can never share a directory.
func (m *Manager) Open() (*Workspace, error) {
	path := filepath.Join(m.root, xid.New().String())
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating %q: %w", path, err)
	}
	return &Workspace{path: path, logger: m.logger}, nil
}

// Sweep removes workspaces older than maxAge. It exists as a backstop for the
// rare case where Close could not delete (e.g. a file still held open by a
// just-killed process tree).
func (m *Manager) Sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		m.logger.Warn("workspace sweep: reading root failed", slog.String("error", err.Error()))
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stale := filepath.Join(m.root, e.Name())
		if err := os.RemoveAll(stale); err != nil {
			m.logger.Warn("workspace sweep: remove failed",
				slog.String("path", stale),
				slog.String("error", err.Error()),
			)
		} else {
			m.logger.Info("workspace sweep: reclaimed orphan", slog.String("path", stale))
		}
	}
}

// SweepLoop runs Sweep on the given interval until the context is canceled.
// Intended to run in its own goroutine, started from main.
func (m *Manager) SweepLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(maxAge)
		}
	}
}

// Workspace is one execution's private directory.
type Workspace struct {
	path   string
	logger *slog.Logger
}

// Path returns the absolute workspace directory.
func (w *Workspace) Path() string { return w.path }

// Write places a file inside the workspace. Names must stay inside the
// workspace — no separators, no "..".
func (w *Workspace) Write(name, content string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("workspace: illegal file name %q", name)
	}
	if err := os.WriteFile(filepath.Join(w.path, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("workspace: writing %q: %w", name, err)
	}
	return nil
}

// Close removes the workspace recursively. Failure is logged, not returned as
// a hard error to callers that defer it — the execution result stands either
// way and the sweeper retries later.
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.path); err != nil {
		w.logger.Warn("workspace close: remove failed",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
