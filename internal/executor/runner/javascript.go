package runner

import (
	"regexp"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// JavaScript runs scripts under node. Scripts that reference browser-only
// globals get a DOM/console emulation shim prepended so they run without a
// real browser; the decision is a static scan, since the shim has to be in
// place before the process starts.
type JavaScript struct {
	node      string
	npx       string
	framework string
}

// browserPatterns match identifiers that only exist in a browser. Plain
// console output is not on the list — node has console too.
var browserPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bdocument\.`),
	regexp.MustCompile(`\bwindow\.`),
	regexp.MustCompile(`\balert\s*\(`),
	regexp.MustCompile(`\bprompt\s*\(`),
	regexp.MustCompile(`\bconfirm\s*\(`),
	regexp.MustCompile(`\blocalStorage\.`),
	regexp.MustCompile(`\bsessionStorage\.`),
	regexp.MustCompile(`\.getElementById\s*\(`),
	regexp.MustCompile(`\.querySelector\s*\(`),
	regexp.MustCompile(`\.addEventListener\s*\(`),
	regexp.MustCompile(`(?i)<\s*(html|body|div|script)`),
}

// needsDOMShim reports whether the source touches browser-only APIs.
func needsDOMShim(code string) bool {
	for _, p := range browserPatterns {
		if p.MatchString(code) {
			return true
		}
	}
	return false
}

func (j *JavaScript) Materialize(req executor.Request, ws *workspace.Workspace) ([]executor.Command, error) {
	if err := writeAux(req, ws); err != nil {
		return nil, err
	}

	cmd := executor.Command{
		Path:     j.npx,
		Dir:      ws.Path(),
		Env:      []string{"NO_COLOR=1"},
		Language: executor.LangJavaScript,
	}
	switch j.framework {
	case "mocha":
		if err := ws.Write("main.test.js", req.Code); err != nil {
			return nil, err
		}
		cmd.Args = []string{"--no-install", "mocha", "--reporter", "spec", "main.test.js"}
	case "jest":
		if err := ws.Write("main.test.js", req.Code); err != nil {
			return nil, err
		}
		cmd.Args = []string{"--no-install", "jest", "--ci", "--rootDir", ".", "main.test.js"}
	default:
		code := req.Code
		if needsDOMShim(code) {
			code = domShim + "\n" + code
		}
		if err := ws.Write("main.js", code); err != nil {
			return nil, err
		}
		cmd.Path = j.node
		cmd.Args = []string{"main.js"}
	}
	return []executor.Command{cmd}, nil
}

func (j *JavaScript) Interpret(req executor.Request, outcomes []executor.RawOutcome) Verdict {
	out := terminal(outcomes)
	v := Verdict{Stdout: out.Stdout, Stderr: out.Stderr}

	if out.ExitCode == 0 {
		v.Status = executor.StatusSuccess
		return v
	}
	// node prints "SyntaxError: ..." with a source excerpt before anything
	// user-visible runs. Framework runs keep their own summary text in the
	// streams; a failing suite is a runtime error, not a syntax one.
	if j.framework == "" && containsAny(out.Stderr, "SyntaxError") {
		v.Status = executor.StatusCompileError
		return v
	}
	if j.framework != "" && containsAny(out.Stderr, "SyntaxError") && !containsAny(out.Stdout, "failing", "✕", "✗") {
		v.Status = executor.StatusCompileError
		return v
	}
	v.Status = executor.StatusRuntimeError
	return v
}
