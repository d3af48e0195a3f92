// Package runner holds the language strategies: each runner turns a request
// into an ordered command sequence for one toolchain, and interprets that
// toolchain's raw outcomes into the uniform status taxonomy.
//
// Runners are stateless and keyed by (language, framework) in a Registry
// built once from the toolchain configuration. They never execute anything
// themselves — the dispatcher feeds their commands to a CommandRunner.
package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// Verdict is a runner's reading of a finished command sequence: the status
// plus the diagnostic streams the caller should see. The dispatcher overrides
// the status when the supervisor killed the process (timeout, flood) — a
// killed process is never reclassified by output parsing.
type Verdict struct {
	Status executor.Status
	Stdout string
	Stderr string
}

// Runner is one (language, framework) strategy.
type Runner interface {
	// Materialize writes the request's source tree into the workspace and
	// returns the commands to execute, in order.
	Materialize(req executor.Request, ws *workspace.Workspace) ([]executor.Command, error)
	// Interpret classifies the outcomes of the commands that actually ran.
	// Outcomes appear in execution order; a short slice means the sequence
	// short-circuited (e.g. compile failed, run never spawned).
	Interpret(req executor.Request, outcomes []executor.RawOutcome) Verdict
}

// SourceError means the submitted source cannot be turned into commands at
// all (e.g. java without a public class). The dispatcher reports it as
// compile_error without spawning anything.
type SourceError struct {
	Reason string
}

func (e *SourceError) Error() string { return e.Reason }

type regKey struct {
	lang      executor.Language
	framework string
}

// Registry maps (language, framework) pairs to runners. Framework names are
// matched case-insensitively ("JUnit" and "junit" are the same pair).
type Registry struct {
	toolchain executor.Toolchain
	runners   map[regKey]Runner
}

// NewRegistry builds the fixed runner set from the toolchain configuration.
func NewRegistry(tc executor.Toolchain) *Registry {
	r := &Registry{toolchain: tc, runners: make(map[regKey]Runner)}

	for _, fw := range []string{"", "pytest", "unittest"} {
		r.runners[regKey{executor.LangPython, fw}] = &Python{bin: tc.Python, framework: fw}
	}
	for _, fw := range []string{"", "mocha", "jest"} {
		r.runners[regKey{executor.LangJavaScript, fw}] = &JavaScript{node: tc.Node, npx: tc.Npx, framework: fw}
	}
	for _, fw := range []string{"", "junit", "testng"} {
		r.runners[regKey{executor.LangJava, fw}] = &Java{
			javac: tc.Javac, java: tc.Java,
			junitJar: tc.JUnitConsoleJar, testngJar: tc.TestNGJar,
			framework: fw,
		}
	}
	for _, fw := range []string{"", "nunit", "xunit"} {
		r.runners[regKey{executor.LangCSharp, fw}] = &CSharp{dotnet: tc.Dotnet, framework: fw}
	}

	return r
}

// Lookup resolves the runner for a request, or executor.ErrUnsupported when
// the pair is not registered. Selenium requests additionally require a
// registered inner (subLanguage, framework) pair.
func (r *Registry) Lookup(req executor.Request) (Runner, error) {
	fw := strings.ToLower(strings.TrimSpace(req.Framework))

	if req.Language == executor.LangSelenium {
		if req.SubLanguage == "" {
			return nil, fmt.Errorf("%w: selenium requires a subLanguage", executor.ErrUnsupported)
		}
		if _, ok := r.runners[regKey{req.SubLanguage, fw}]; !ok {
			return nil, fmt.Errorf("%w: selenium/%s/%s", executor.ErrUnsupported, req.SubLanguage, req.Framework)
		}
		return &Harness{reg: r, shell: r.toolchain.Shell, remoteURL: r.toolchain.SeleniumRemoteURL}, nil
	}

	rn, ok := r.runners[regKey{req.Language, fw}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", executor.ErrUnsupported, req.Language, req.Framework)
	}
	return rn, nil
}

// Supported reports the language → frameworks matrix, used by the health
// endpoint. Direct (framework-less) execution is implied for every language.
func (r *Registry) Supported() map[string][]string {
	out := make(map[string][]string)
	for k := range r.runners {
		if k.framework == "" {
			if _, ok := out[string(k.lang)]; !ok {
				out[string(k.lang)] = []string{}
			}
			continue
		}
		out[string(k.lang)] = append(out[string(k.lang)], k.framework)
	}
	for lang := range out {
		sort.Strings(out[lang])
	}
	out[string(executor.LangSelenium)] = []string{"via subLanguage"}
	return out
}

// writeAux writes the request's auxiliary files into the workspace in a
// deterministic order.
func writeAux(req executor.Request, ws *workspace.Workspace) error {
	names := make([]string, 0, len(req.Files))
	for name := range req.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ws.Write(name, req.Files[name]); err != nil {
			return err
		}
	}
	return nil
}

// terminal returns the outcome of the last command that ran.
func terminal(outcomes []executor.RawOutcome) executor.RawOutcome {
	if len(outcomes) == 0 {
		return executor.RawOutcome{}
	}
	return outcomes[len(outcomes)-1]
}

// containsAny reports whether s contains any of the given signatures.
func containsAny(s string, signatures ...string) bool {
	for _, sig := range signatures {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}
