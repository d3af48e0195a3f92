package executor

import "time"

// Config is the engine's read-only configuration, resolved once at process
// start and passed explicitly into the dispatcher. Runners never look anything
// up from the environment themselves.
type Config struct {
	// WorkspaceRoot is the directory under which per-request workspaces are
	// created.
	WorkspaceRoot string
	// DefaultTimeLimit applies when a request does not set timeLimitMillis.
	// It is also the ceiling: requests cannot ask for more.
	DefaultTimeLimit time.Duration
	// DefaultMaxOutputBytes caps each captured stream per command.
	DefaultMaxOutputBytes int64
	// MaxConcurrent bounds the number of executions in flight; further
	// requests queue in arrival order.
	MaxConcurrent int
	// KillGrace is how long a terminated process group gets between SIGTERM
	// and SIGKILL.
	KillGrace time.Duration
	// FloodFactor: once a stream is truncated, discarding more than
	// FloodFactor times the command's effective MaxOutputBytes (the request
	// override when set, DefaultMaxOutputBytes otherwise) marks the process
	// as a runaway producer and it is killed with resource_exceeded.
	FloodFactor int64
	// SweepInterval/SweepMaxAge drive the background reclaim of orphaned
	// workspaces. Zero interval disables the sweeper.
	SweepInterval time.Duration
	SweepMaxAge   time.Duration

	Toolchain Toolchain
}

// Toolchain holds the command templates for every supported language. These
// are configuration, not policy: deployments point them at whatever binaries
// and jars the host actually has.
type Toolchain struct {
	Python string
	Node   string
	Npx    string
	Javac  string
	Java   string
	Dotnet string
	Shell  string

	// JUnitConsoleJar / TestNGJar are the self-contained launcher jars used
	// for java framework runs.
	JUnitConsoleJar string
	TestNGJar       string

	// SeleniumRemoteURL is handed to automation-harness runs as the driver
	// endpoint. The driver itself is an external dependency.
	SeleniumRemoteURL string
}

// DefaultConfig mirrors the limits the platform has always shipped with:
// 10s wall clock, 64KiB per stream, four concurrent executions.
func DefaultConfig() Config {
	return Config{
		WorkspaceRoot:         "data/workspaces",
		DefaultTimeLimit:      10 * time.Second,
		DefaultMaxOutputBytes: 64 * 1024,
		MaxConcurrent:         4,
		KillGrace:             500 * time.Millisecond,
		FloodFactor:           8,
		SweepInterval:         time.Minute,
		SweepMaxAge:           10 * time.Minute,
		Toolchain: Toolchain{
			Python:            "python3",
			Node:              "node",
			Npx:               "npx",
			Javac:             "javac",
			Java:              "java",
			Dotnet:            "dotnet",
			Shell:             "/bin/sh",
			JUnitConsoleJar:   "/opt/junit/junit-platform-console-standalone.jar",
			TestNGJar:         "/opt/testng/testng.jar",
			SeleniumRemoteURL: "http://localhost:4444/wd/hub",
		},
	}
}

// Limits resolves a request's effective limits against the defaults, clamping
// anything above the configured ceilings.
func (c Config) Limits(req Request) Limits {
	l := Limits{
		TimeLimit:      c.DefaultTimeLimit,
		MaxOutputBytes: c.DefaultMaxOutputBytes,
	}
	if req.TimeLimitMillis > 0 {
		if d := time.Duration(req.TimeLimitMillis) * time.Millisecond; d < l.TimeLimit {
			l.TimeLimit = d
		}
	}
	if req.MaxOutputBytes > 0 && req.MaxOutputBytes < l.MaxOutputBytes {
		l.MaxOutputBytes = req.MaxOutputBytes
	}
	return l
}
