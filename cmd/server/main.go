// Package main is the entry point for the learnquest execution server.
// It reads configuration, builds the execution engine (process or docker
// backend), and starts the HTTP server. All logic lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/dispatch"
	"github.com/sakif/learnquest/internal/executor/runner"
	"github.com/sakif/learnquest/internal/executor/sandbox"
	"github.com/sakif/learnquest/internal/executor/supervise"
	"github.com/sakif/learnquest/internal/executor/workspace"
	"github.com/sakif/learnquest/internal/server"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	logger := newLogger()

	port := envInt("PORT", 8080)

	dbPath := envStr("DB_PATH", "data/learnquest.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	execCfg := loadExecutorConfig()

	wsManager, err := workspace.NewManager(execCfg.WorkspaceRoot, logger)
	if err != nil {
		logger.Error("failed to create workspace root", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Backstop reclaim of workspaces orphaned by crashes or held-open files.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if execCfg.SweepInterval > 0 {
		go wsManager.SweepLoop(sweepCtx, execCfg.SweepInterval, execCfg.SweepMaxAge)
	}

	backend, cleanup, err := newBackend(execCfg, wsManager, logger)
	if err != nil {
		logger.Error("failed to create execution backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	registry := runner.NewRegistry(execCfg.Toolchain)
	engine := dispatch.New(execCfg, registry, wsManager, backend, logger)

	cfg := server.Config{
		Port:           port,
		DBPath:         dbPath,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		SecureCookie:   os.Getenv("SECURE_COOKIES") == "true",
		AllowedOrigins: splitNonEmpty(os.Getenv("ALLOWED_ORIGINS")),
	}

	srv, err := server.New(cfg, engine, registry.Supported(), logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger picks the slog handler from LOG_FORMAT: "pretty" for tint's
// colorized development output, "json" for machine consumption, plain text
// otherwise.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch os.Getenv("LOG_FORMAT") {
	case "pretty":
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// loadExecutorConfig starts from the engine defaults and applies env
// overrides for the knobs deployments actually tune.
func loadExecutorConfig() executor.Config {
	cfg := executor.DefaultConfig()

	cfg.WorkspaceRoot = envStr("WORKSPACE_ROOT", cfg.WorkspaceRoot)
	if ms := envInt("EXEC_TIME_LIMIT_MS", 0); ms > 0 {
		cfg.DefaultTimeLimit = time.Duration(ms) * time.Millisecond
	}
	if b := envInt("EXEC_MAX_OUTPUT_BYTES", 0); b > 0 {
		cfg.DefaultMaxOutputBytes = int64(b)
	}
	if n := envInt("EXEC_MAX_CONCURRENT", 0); n > 0 {
		cfg.MaxConcurrent = n
	}

	cfg.Toolchain.Python = envStr("PYTHON_BIN", cfg.Toolchain.Python)
	cfg.Toolchain.Node = envStr("NODE_BIN", cfg.Toolchain.Node)
	cfg.Toolchain.Npx = envStr("NPX_BIN", cfg.Toolchain.Npx)
	cfg.Toolchain.Javac = envStr("JAVAC_BIN", cfg.Toolchain.Javac)
	cfg.Toolchain.Java = envStr("JAVA_BIN", cfg.Toolchain.Java)
	cfg.Toolchain.Dotnet = envStr("DOTNET_BIN", cfg.Toolchain.Dotnet)
	cfg.Toolchain.JUnitConsoleJar = envStr("JUNIT_CONSOLE_JAR", cfg.Toolchain.JUnitConsoleJar)
	cfg.Toolchain.TestNGJar = envStr("TESTNG_JAR", cfg.Toolchain.TestNGJar)
	cfg.Toolchain.SeleniumRemoteURL = envStr("SELENIUM_REMOTE_URL", cfg.Toolchain.SeleniumRemoteURL)

	return cfg
}

// newBackend selects the CommandRunner. EXECUTOR_BACKEND=docker isolates
// every command in a network-less container; the default runs supervised
// child processes on the host.
func newBackend(cfg executor.Config, ws *workspace.Manager, logger *slog.Logger) (executor.CommandRunner, func(), error) {
	if os.Getenv("EXECUTOR_BACKEND") == "docker" {
		sb, err := sandbox.New(sandbox.DefaultConfig(ws.Root()), logger)
		if err != nil {
			return nil, nil, err
		}
		return sb, func() { sb.Close() }, nil //nolint:errcheck
	}
	return supervise.New(cfg, logger), func() {}, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// splitNonEmpty splits a comma-separated list, dropping blanks.
func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
