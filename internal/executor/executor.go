// Package executor defines the contract between the execution engine and its
// callers: the request/result types shared by the dispatcher, the language
// runners, and the command backends (process supervisor, docker sandbox).
//
// The types here are deliberately plain data. Everything that *does* something
// lives in a subpackage:
//
//	workspace/  per-request filesystem scope
//	supervise/  child-process CommandRunner
//	sandbox/    docker-backed CommandRunner
//	runner/     (language, framework) strategies
//	dispatch/   ties the above together
package executor

import (
	"context"
	"errors"
	"time"
)

// Language identifies a supported toolchain.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangSelenium   Language = "selenium"
)

// ErrUnsupported is returned when no runner is registered for the requested
// language/framework combination. It is the one failure mode that surfaces as
// an error instead of a classified Result — the request could not even be
// attempted.
var ErrUnsupported = errors.New("unsupported language/framework configuration")

// Request is the immutable input to one execution.
type Request struct {
	Language  Language `json:"language"`
	Framework string   `json:"framework,omitempty"`
	// SubLanguage selects the inner toolchain when Language is selenium.
	SubLanguage Language `json:"subLanguage,omitempty"`
	Code        string   `json:"code"`
	// Files are auxiliary files written next to the source, e.g. an HTML
	// fixture for browser-simulated scripts. Keys must be plain file names.
	Files           map[string]string `json:"files,omitempty"`
	TimeLimitMillis int64             `json:"timeLimitMillis,omitempty"`
	MaxOutputBytes  int64             `json:"maxOutputBytes,omitempty"`
}

// Status is the single classification assigned to a finished or terminated
// execution.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusCompileError     Status = "compile_error"
	StatusRuntimeError     Status = "runtime_error"
	StatusTimeout          Status = "timeout"
	StatusResourceExceeded Status = "resource_exceeded"
	StatusInternalError    Status = "internal_error"
)

// Result is the uniform outcome contract. Exactly one Result is produced per
// Request. ExitCode is nil when the process never exited on its own (timeout,
// internal error).
type Result struct {
	Status          Status `json:"status"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	TruncatedStdout bool   `json:"truncatedStdout"`
	TruncatedStderr bool   `json:"truncatedStderr"`
	DurationMillis  int64  `json:"durationMillis"`
	ExitCode        *int   `json:"exitCode,omitempty"`
}

// Command is one subprocess invocation produced by a runner. Commands execute
// in order; the dispatcher stops at the first failed or killed command, except
// that AlwaysRun commands (teardown steps) still execute.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory, always inside the request's workspace.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// Language lets an image-based backend pick the right container image.
	// The process backend ignores it.
	Language  Language
	AlwaysRun bool
}

// KillReason records why the supervisor terminated a process, if it did.
type KillReason string

const (
	KillNone    KillReason = ""
	KillTimeout KillReason = "timeout"
	// KillOutputFlood means the process kept producing output long after the
	// capture ceiling was reached and was terminated as a runaway producer.
	KillOutputFlood KillReason = "output_flood"
)

// RawOutcome is what a CommandRunner observed for one Command.
type RawOutcome struct {
	ExitCode        int
	Killed          KillReason
	Stdout          string
	Stderr          string
	TruncatedStdout bool
	TruncatedStderr bool
	Duration        time.Duration
}

// Limits bounds one command invocation.
type Limits struct {
	TimeLimit      time.Duration
	MaxOutputBytes int64
}

// CommandRunner executes a single Command under limits and reports exactly one
// terminal outcome. A returned error means the runner itself failed (missing
// executable, backend unavailable) — the dispatcher classifies that as
// internal_error; everything the user's program did, including being killed,
// is reported inside the RawOutcome.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command, limits Limits) (RawOutcome, error)
}

// Engine is the outward face of the execution core, consumed by the HTTP
// layer. dispatch.Dispatcher is the production implementation.
type Engine interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}
