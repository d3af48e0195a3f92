package runner

import (
	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// Python runs a single-file script through the interpreter, or through
// pytest/unittest when a framework is requested. There is no build step; the
// compile/runtime boundary is drawn from the interpreter's own diagnostics.
type Python struct {
	bin       string
	framework string
}

// pySyntaxSignatures are the stderr markers that mean the interpreter
// rejected the source before running any of it.
var pySyntaxSignatures = []string{"SyntaxError", "IndentationError", "TabError"}

func (p *Python) Materialize(req executor.Request, ws *workspace.Workspace) ([]executor.Command, error) {
	name := "main.py"
	if p.framework != "" {
		// Both pytest and unittest discover tests by file/module name.
		name = "test_main.py"
	}
	if err := ws.Write(name, req.Code); err != nil {
		return nil, err
	}
	if err := writeAux(req, ws); err != nil {
		return nil, err
	}

	cmd := executor.Command{
		Path:     p.bin,
		Dir:      ws.Path(),
		Env:      []string{"PYTHONDONTWRITEBYTECODE=1", "PYTHONUNBUFFERED=1"},
		Language: executor.LangPython,
	}
	switch p.framework {
	case "pytest":
		cmd.Args = []string{"-m", "pytest", "-v", "-p", "no:cacheprovider", name}
	case "unittest":
		cmd.Args = []string{"-m", "unittest", "-v", "test_main"}
	default:
		cmd.Args = []string{name}
	}
	return []executor.Command{cmd}, nil
}

func (p *Python) Interpret(req executor.Request, outcomes []executor.RawOutcome) Verdict {
	out := terminal(outcomes)
	v := Verdict{Stdout: out.Stdout, Stderr: out.Stderr}

	if out.ExitCode == 0 {
		v.Status = executor.StatusSuccess
		return v
	}
	// pytest reports collection-time syntax errors on stdout; the bare
	// interpreter puts them on stderr.
	if containsAny(out.Stderr+out.Stdout, pySyntaxSignatures...) {
		v.Status = executor.StatusCompileError
		return v
	}
	v.Status = executor.StatusRuntimeError
	return v
}
