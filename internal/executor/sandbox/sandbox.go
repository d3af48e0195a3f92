// Package sandbox is the docker-backed CommandRunner: each command executes
// inside a pre-warmed, network-less container whose image matches the
// command's language, with the workspace root bind-mounted so the same
// materialized files are visible on both sides. A container is used for one
// command and force-removed afterwards — nothing is reused across requests.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/learnquest/internal/executor"
)

// Config holds the docker backend configuration.
type Config struct {
	// Images maps a language to the container image that carries its
	// toolchain. Languages without an image cannot use this backend.
	Images map[executor.Language]string
	// MemoryLimit is the per-container memory ceiling in bytes.
	MemoryLimit int64
	// CPULimit is the fraction of a CPU each container may use.
	CPULimit float64
	// PoolSize is the number of pre-warmed containers kept per image.
	PoolSize int
	// WorkspacesRoot is the host directory the workspace manager allocates
	// under; it is bind-mounted read-write at MountPath in every container.
	WorkspacesRoot string
	MountPath      string
}

// DefaultConfig covers the interpreted languages out of the box. Compiled
// toolchains need purpose-built images and are usually left on the process
// backend.
func DefaultConfig(workspacesRoot string) Config {
	return Config{
		Images: map[executor.Language]string{
			executor.LangPython:     "python:3.12-alpine",
			executor.LangJavaScript: "node:22-alpine",
		},
		MemoryLimit:    256 * 1024 * 1024,
		CPULimit:       0.5,
		PoolSize:       2,
		WorkspacesRoot: workspacesRoot,
		MountPath:      "/workspaces",
	}
}

// Sandbox implements executor.CommandRunner on the docker API.
type Sandbox struct {
	cli    *client.Client
	cfg    Config
	logger *slog.Logger
	pools  map[executor.Language]*pool
}

// New connects to the docker daemon, pulls every configured image, and starts
// the per-image container pools.
func New(cfg Config, logger *slog.Logger) (*Sandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("sandbox: creating docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for lang, img := range cfg.Images {
		logger.Info("ensuring sandbox image is available",
			slog.String("language", string(lang)), slog.String("image", img))
		reader, err := cli.ImagePull(ctx, img, image.PullOptions{})
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("sandbox: pulling %s: %w", img, err)
		}
		// Drain to block until the pull completes.
		io.Copy(io.Discard, reader) //nolint:errcheck
		reader.Close()
	}

	s := &Sandbox{
		cli:    cli,
		cfg:    cfg,
		logger: logger,
		pools:  make(map[executor.Language]*pool),
	}
	for lang, img := range cfg.Images {
		p := newPool(cli, cfg, img, logger)
		p.start()
		s.pools[lang] = p
	}
	return s, nil
}

// Close shuts down the pools and the docker client.
func (s *Sandbox) Close() error {
	for _, p := range s.pools {
		p.stop()
	}
	return s.cli.Close()
}

// Run executes one command inside a pooled container for the command's
// language. Timeout handling mirrors the process supervisor: the exec is
// abandoned and the container force-removed, which kills the whole in-container
// process tree.
func (s *Sandbox) Run(ctx context.Context, cmd executor.Command, limits executor.Limits) (executor.RawOutcome, error) {
	p, ok := s.pools[cmd.Language]
	if !ok {
		return executor.RawOutcome{}, fmt.Errorf("sandbox: no image configured for language %q", cmd.Language)
	}

	containerID, err := p.get(ctx)
	if err != nil {
		return executor.RawOutcome{}, fmt.Errorf("sandbox: acquiring container: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			s.logger.Error("failed to remove sandbox container",
				slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	// The workspace dir on the host maps to MountPath/<dir name> inside.
	workdir := path.Join(s.cfg.MountPath, filepath.Base(cmd.Dir))

	execCtx, cancel := context.WithTimeout(ctx, limits.TimeLimit)
	defer cancel()

	start := time.Now()
	execResp, err := s.cli.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workdir,
		Env:          cmd.Env,
		Cmd:          append([]string{cmd.Path}, cmd.Args...),
	})
	if err != nil {
		return executor.RawOutcome{}, fmt.Errorf("sandbox: creating exec: %w", err)
	}

	attach, err := s.cli.ContainerExecAttach(execCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return executor.RawOutcome{}, fmt.Errorf("sandbox: attaching exec: %w", err)
	}
	defer attach.Close()

	stdout := newBoundedBuffer(limits.MaxOutputBytes)
	stderr := newBoundedBuffer(limits.MaxOutputBytes)

	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes the docker stream back into two pipes.
		_, _ = stdcopy.StdCopy(stdout, stderr, attach.Reader)
		close(done)
	}()

	var out executor.RawOutcome
	select {
	case <-done:
		inspect, err := s.cli.ContainerExecInspect(context.Background(), execResp.ID)
		if err == nil {
			out.ExitCode = inspect.ExitCode
		}
	case <-execCtx.Done():
		// Timeout or caller cancellation; the deferred force-remove reaps
		// the process tree.
		out.Killed = executor.KillTimeout
	}

	out.Duration = time.Since(start)
	out.Stdout, out.TruncatedStdout = stdout.contents()
	out.Stderr, out.TruncatedStderr = stderr.contents()
	return out, nil
}
