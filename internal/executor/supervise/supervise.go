// Package supervise runs a single command as a child process under enforced
// limits: wall-clock timeout, per-stream output ceiling, and termination of
// the whole process tree when a limit is breached.
//
// The child gets its own process group (Setpgid) at spawn time, so one signal
// to the negative pgid reaches every descendant — a user script that forks
// cannot leave grandchildren running past the timeout.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/sakif/learnquest/internal/executor"
)

// Supervisor is a process-based executor.CommandRunner.
type Supervisor struct {
	logger *slog.Logger
	// grace is the SIGTERM→SIGKILL window.
	grace time.Duration
	// floodFactor × MaxOutputBytes of discarded output marks a runaway
	// producer. Zero disables flood kills.
	floodFactor int64
}

// New creates a Supervisor from the engine config.
func New(cfg executor.Config, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logger:      logger,
		grace:       cfg.KillGrace,
		floodFactor: cfg.FloodFactor,
	}
}

// Run spawns the command and blocks until it exits, is killed for a limit
// violation, or the context is canceled (treated exactly like a timeout).
// Exactly one terminal outcome is produced; a non-nil error means the command
// could not be attempted at all (e.g. missing executable).
func (s *Supervisor) Run(ctx context.Context, cmd executor.Command, limits executor.Limits) (executor.RawOutcome, error) {
	c := exec.Command(cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	// New process group so the kill below reaches the whole tree.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// A descendant that re-sessions itself (setsid) escapes the group kill
	// but still holds the inherited output pipes; without a delay, Wait
	// would block on those pipes for as long as the orphan lives. WaitDelay
	// force-closes them once the leader is gone.
	c.WaitDelay = s.grace

	flood := make(chan struct{}, 1)
	var floodAt int64
	if s.floodFactor > 0 {
		floodAt = s.floodFactor * limits.MaxOutputBytes
	}
	stdout := newCapWriter(limits.MaxOutputBytes, floodAt, flood)
	stderr := newCapWriter(limits.MaxOutputBytes, floodAt, flood)
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	if err := c.Start(); err != nil {
		return executor.RawOutcome{}, fmt.Errorf("supervise: starting %s: %w", cmd.Path, err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	timer := time.NewTimer(limits.TimeLimit)
	defer timer.Stop()

	var out executor.RawOutcome
	var waitErr error

	select {
	case waitErr = <-done:
		// Natural exit.
	case <-timer.C:
		out.Killed = executor.KillTimeout
		waitErr = s.terminate(c, done)
	case <-ctx.Done():
		// Caller disconnect or shutdown propagates like a timeout.
		out.Killed = executor.KillTimeout
		waitErr = s.terminate(c, done)
	case <-flood:
		out.Killed = executor.KillOutputFlood
		waitErr = s.terminate(c, done)
	}

	out.Duration = time.Since(start)
	out.ExitCode = exitCode(c, waitErr)
	out.Stdout, out.TruncatedStdout = stdout.contents()
	out.Stderr, out.TruncatedStderr = stderr.contents()
	return out, nil
}

// terminate signals the whole process group, escalating to SIGKILL after the
// grace window, and waits for Wait to return so no zombie is left behind.
func (s *Supervisor) terminate(c *exec.Cmd, done <-chan error) error {
	pgid := c.Process.Pid
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		s.logger.Debug("supervise: SIGTERM failed", slog.Int("pgid", pgid), slog.String("error", err.Error()))
	}
	select {
	case err := <-done:
		return err
	case <-time.After(s.grace):
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
			s.logger.Debug("supervise: SIGKILL failed", slog.Int("pgid", pgid), slog.String("error", err.Error()))
		}
		return <-done
	}
}

// exitCode maps the error from (*exec.Cmd).Wait to a numeric exit code.
// ErrWaitDelay means the process itself exited and only the trimmed pipes
// cut Wait short, so the real code comes from ProcessState. A signal death
// reports -1; callers only look at it when Killed is empty.
func exitCode(c *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) && c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}
	if ee, ok := waitErr.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}
