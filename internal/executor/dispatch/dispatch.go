// Package dispatch sequences one execution request end to end: admission,
// workspace lifecycle, runner materialization, supervised command execution,
// and result normalization. It is the production executor.Engine.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/runner"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// Dispatcher routes requests to runners and supervises their command
// sequences. It holds no per-request state; concurrent Execute calls share
// only the admission pool and the workspace root.
type Dispatcher struct {
	cfg      executor.Config
	registry *runner.Registry
	ws       *workspace.Manager
	backend  executor.CommandRunner
	pool     *pool
	logger   *slog.Logger
}

// New wires a Dispatcher. The backend is whichever CommandRunner the
// deployment selected (process supervisor or docker sandbox).
func New(cfg executor.Config, reg *runner.Registry, ws *workspace.Manager, backend executor.CommandRunner, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		registry: reg,
		ws:       ws,
		backend:  backend,
		pool:     newPool(cfg.MaxConcurrent),
		logger:   logger,
	}
}

// Execute produces exactly one Result per request. Error returns are reserved
// for the two genuine fault paths: executor.ErrUnsupported (nothing was
// attempted) and infrastructure faults (workspace allocation, missing
// toolchain binary). Everything the submitted code did — including being
// killed — comes back as a classified Result.
//
// There are no retries at this level: rerunning user code is a caller
// decision, since submitted code may have side effects.
func (d *Dispatcher) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	// Validate the (language, framework) pair before touching the
	// filesystem: an unsupported request must not create a workspace.
	rn, err := d.registry.Lookup(req)
	if err != nil {
		return nil, err
	}

	// Admission control: bounded concurrency, callers queue in arrival
	// order. A canceled wait never reaches the workspace stage.
	if err := d.pool.acquire(ctx); err != nil {
		return nil, fmt.Errorf("dispatch: queued request canceled: %w", err)
	}
	defer d.pool.release()

	ws, err := d.ws.Open()
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	// Cleanup runs on every exit path. Removal failures are logged inside
	// Close and reclaimed by the sweeper; they never change the result.
	defer ws.Close() //nolint:errcheck

	cmds, err := rn.Materialize(req, ws)
	if err != nil {
		var srcErr *runner.SourceError
		if errors.As(err, &srcErr) {
			// The source can't produce a runnable artifact; nothing spawns.
			return &executor.Result{
				Status: executor.StatusCompileError,
				Stderr: srcErr.Reason,
			}, nil
		}
		return nil, fmt.Errorf("dispatch: materialize: %w", err)
	}

	limits := d.cfg.Limits(req)

	var (
		outcomes []executor.RawOutcome
		term     executor.RawOutcome
		failed   bool
	)
	for _, cmd := range cmds {
		// Strict ordering with short-circuit: after a failed or killed step
		// only AlwaysRun teardown commands still execute.
		if failed && !cmd.AlwaysRun {
			continue
		}
		out, runErr := d.backend.Run(ctx, cmd, limits)
		if runErr != nil {
			d.logger.Error("command could not be attempted",
				slog.String("path", cmd.Path),
				slog.String("language", string(cmd.Language)),
				slog.String("error", runErr.Error()),
			)
			return nil, fmt.Errorf("dispatch: %w", runErr)
		}
		outcomes = append(outcomes, out)
		if !cmd.AlwaysRun {
			term = out
			if out.ExitCode != 0 || out.Killed != executor.KillNone {
				failed = true
			}
		}
	}

	res := normalize(rn, req, outcomes, term)
	d.logger.Info("execution finished",
		slog.String("language", string(req.Language)),
		slog.String("framework", req.Framework),
		slog.String("status", string(res.Status)),
		slog.Int64("durationMillis", res.DurationMillis),
	)
	return res, nil
}
