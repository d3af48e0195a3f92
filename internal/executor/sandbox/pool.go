package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// pool keeps a fixed number of pre-warmed containers for one image, so an
// execution never pays container start-up latency. Containers idle on
// `sleep infinity` until an exec lands in them.
type pool struct {
	cli        *client.Client
	cfg        Config
	image      string
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
}

func newPool(cli *client.Client, cfg Config, image string, logger *slog.Logger) *pool {
	return &pool{
		cli:        cli,
		cfg:        cfg,
		image:      image,
		logger:     logger,
		containers: make(chan string, cfg.PoolSize),
		done:       make(chan struct{}),
	}
}

func (p *pool) start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting sandbox container pool",
			slog.String("image", p.image), slog.Int("poolSize", p.cfg.PoolSize))
		p.wg.Add(1)
		go p.manager()
	})
}

func (p *pool) stop() {
	close(p.done)
	p.wg.Wait()

	// Drain and remove surviving containers.
	for {
		select {
		case id := <-p.containers:
			p.removeContainer(id)
		default:
			return
		}
	}
}

// get returns a ready container ID, blocking until one is warm or the
// context is canceled.
func (p *pool) get(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// manager keeps the pool topped up.
func (p *pool) manager() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
			if len(p.containers) < cap(p.containers) {
				id, err := p.createContainer()
				if err != nil {
					p.logger.Error("failed to create pre-warmed container",
						slog.String("image", p.image), slog.String("error", err.Error()))
					time.Sleep(time.Second) // backoff on failure
					continue
				}
				select {
				case p.containers <- id:
				case <-p.done:
					p.removeContainer(id)
					return
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (p *pool) createContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.cfg.MemoryLimit,
			NanoCPUs: int64(p.cfg.CPULimit * 1e9),
		},
		// Workspaces are the only writable surface inside the container.
		Binds:          []string{p.cfg.WorkspacesRoot + ":" + p.cfg.MountPath},
		ReadonlyRootfs: true,
		AutoRemove:     false,
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image: p.image,
		Cmd:   []string{"sleep", "infinity"},
		Tty:   false,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.removeContainer(resp.ID)
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}
	return resp.ID, nil
}

func (p *pool) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// boundedBuffer caps a captured stream; overflow is discarded and flagged.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newBoundedBuffer(max int64) *boundedBuffer {
	return &boundedBuffer{max: max}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.max - int64(b.buf.Len())
	if room > 0 {
		n := int64(len(p))
		if n > room {
			n = room
		}
		b.buf.Write(p[:n])
	}
	if int64(len(p)) > room {
		b.truncated = true
	}
	return len(p), nil
}

func (b *boundedBuffer) contents() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String(), b.truncated
}
