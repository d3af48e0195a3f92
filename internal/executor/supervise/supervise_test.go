package supervise

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/learnquest/internal/executor"
)

func newTestSupervisor() *Supervisor {
	cfg := executor.DefaultConfig()
	cfg.KillGrace = 200 * time.Millisecond
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func shCommand(t *testing.T, script string) executor.Command {
	t.Helper()
	return executor.Command{
		Path: "/bin/sh",
		Args: []string{"-c", script},
		Dir:  t.TempDir(),
	}
}

func defaultLimits() executor.Limits {
	return executor.Limits{
		TimeLimit:      5 * time.Second,
		MaxOutputBytes: 64 * 1024,
	}
}

func TestRun_CleanExit(t *testing.T) {
	s := newTestSupervisor()

	out, err := s.Run(context.Background(), shCommand(t, `echo hello; echo oops >&2`), defaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, executor.KillNone, out.Killed)
	assert.Equal(t, "hello\n", out.Stdout)
	assert.Equal(t, "oops\n", out.Stderr)
	assert.False(t, out.TruncatedStdout)
	assert.Greater(t, out.Duration, time.Duration(0))
}

func TestRun_NonZeroExit(t *testing.T) {
	s := newTestSupervisor()

	out, err := s.Run(context.Background(), shCommand(t, `exit 3`), defaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, executor.KillNone, out.Killed)
}

func TestRun_Timeout(t *testing.T) {
	s := newTestSupervisor()
	limits := executor.Limits{TimeLimit: 200 * time.Millisecond, MaxOutputBytes: 64 * 1024}

	start := time.Now()
	out, err := s.Run(context.Background(), shCommand(t, `echo before; sleep 30; echo after`), limits)
	require.NoError(t, err)

	assert.Equal(t, executor.KillTimeout, out.Killed)
	assert.Equal(t, "before\n", out.Stdout)
	assert.NotContains(t, out.Stdout, "after")
	assert.Less(t, time.Since(start), 5*time.Second, "kill must not wait out the sleep")
}

func TestRun_TimeoutKillsChildren(t *testing.T) {
	s := newTestSupervisor()
	limits := executor.Limits{TimeLimit: 200 * time.Millisecond, MaxOutputBytes: 64 * 1024}

	// The background child would outlive a naive single-process kill; the
	// process-group signal reaps it too.
	start := time.Now()
	out, err := s.Run(context.Background(), shCommand(t, `sleep 30 & wait`), limits)
	require.NoError(t, err)

	assert.Equal(t, executor.KillTimeout, out.Killed)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_TimeoutWithDetachedDescendant(t *testing.T) {
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
	s := newTestSupervisor()
	limits := executor.Limits{TimeLimit: 200 * time.Millisecond, MaxOutputBytes: 64 * 1024}

	// The setsid child leaves the process group, so the group kill misses it
	// and it keeps the inherited stdout pipe open. Run must still return
	// within timeout+grace instead of waiting out the orphan's sleep.
	start := time.Now()
	out, err := s.Run(context.Background(), shCommand(t, `setsid sleep 5 & sleep 30`), limits)
	require.NoError(t, err)

	assert.Equal(t, executor.KillTimeout, out.Killed)
	assert.Less(t, time.Since(start), 2*time.Second, "an orphan holding the pipe must not delay the return")
}

func TestRun_CleanExitWithLingeringChild(t *testing.T) {
	s := newTestSupervisor()

	// The leader exits 0 while a background child still holds the pipe. The
	// trimmed wait must report the leader's own exit status promptly.
	start := time.Now()
	out, err := s.Run(context.Background(), shCommand(t, `sleep 5 & echo done`), defaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, executor.KillNone, out.Killed)
	assert.Equal(t, "done\n", out.Stdout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_ContextCancellation(t *testing.T) {
	s := newTestSupervisor()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	out, err := s.Run(ctx, shCommand(t, `sleep 30`), defaultLimits())
	require.NoError(t, err)
	assert.Equal(t, executor.KillTimeout, out.Killed, "cancellation reports like a timeout")
}

func TestRun_OutputTruncation(t *testing.T) {
	s := newTestSupervisor()
	limits := executor.Limits{TimeLimit: 5 * time.Second, MaxOutputBytes: 100}

	// Write past the cap but below the flood threshold, then exit normally.
	out, err := s.Run(context.Background(), shCommand(t,
		`i=0; while [ $i -lt 20 ]; do echo 0123456789012345678901234567890123456789; i=$((i+1)); done`), limits)
	require.NoError(t, err)

	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, executor.KillNone, out.Killed, "finite overflow is truncated, not killed")
	assert.True(t, out.TruncatedStdout)
	assert.LessOrEqual(t, len(out.Stdout), 100)
}

func TestRun_OutputFloodKill(t *testing.T) {
	s := newTestSupervisor()
	// 64 bytes cap with the default flood factor: the kill threshold is far
	// below what the infinite loop produces.
	limits := executor.Limits{TimeLimit: 10 * time.Second, MaxOutputBytes: 64}

	start := time.Now()
	out, err := s.Run(context.Background(), shCommand(t,
		`while :; do echo flooooooooooooooooooooooooooooooood; done`), limits)
	require.NoError(t, err)

	assert.Equal(t, executor.KillOutputFlood, out.Killed)
	assert.True(t, out.TruncatedStdout)
	assert.Less(t, time.Since(start), 10*time.Second, "flood kill must fire before the time limit")
}

func TestRun_MissingExecutable(t *testing.T) {
	s := newTestSupervisor()

	cmd := executor.Command{Path: "/no/such/binary", Dir: t.TempDir()}
	_, err := s.Run(context.Background(), cmd, defaultLimits())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "supervise:"))
}

func TestRun_EnvPassedThrough(t *testing.T) {
	s := newTestSupervisor()

	cmd := shCommand(t, `printf '%s' "$EXTRA_VALUE"`)
	cmd.Env = []string{"EXTRA_VALUE=from-the-outside"}

	out, err := s.Run(context.Background(), cmd, defaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "from-the-outside", out.Stdout)
}
