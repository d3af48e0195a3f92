package runner

import (
	"regexp"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// Java is the compile-then-run variant: javac produces classes in the
// workspace, java runs them. If the compile command fails the run command is
// never issued and the compiler's stderr becomes the diagnostic.
type Java struct {
	javac     string
	java      string
	junitJar  string
	testngJar string
	framework string
}

// javaClassRe extracts the public class name — the source file must be named
// after it or javac refuses to compile.
var javaClassRe = regexp.MustCompile(`public\s+class\s+(\w+)`)

func (r *Java) Materialize(req executor.Request, ws *workspace.Workspace) ([]executor.Command, error) {
	m := javaClassRe.FindStringSubmatch(req.Code)
	if m == nil {
		return nil, &SourceError{Reason: "java source must declare a public class"}
	}
	name := m[1]

	if err := ws.Write(name+".java", req.Code); err != nil {
		return nil, err
	}
	if err := writeAux(req, ws); err != nil {
		return nil, err
	}

	compile := executor.Command{Path: r.javac, Dir: ws.Path(), Language: executor.LangJava}
	run := executor.Command{Path: r.java, Dir: ws.Path(), Language: executor.LangJava}

	switch r.framework {
	case "junit":
		compile.Args = []string{"-cp", r.junitJar, name + ".java"}
		run.Args = []string{
			"-jar", r.junitJar, "execute",
			"--class-path", ".", "--scan-class-path",
			"--disable-banner", "--disable-ansi-colors",
		}
	case "testng":
		compile.Args = []string{"-cp", r.testngJar, name + ".java"}
		run.Args = []string{"-cp", r.testngJar + ":.", "org.testng.TestNG", "-testclass", name}
	default:
		compile.Args = []string{name + ".java"}
		run.Args = []string{"-cp", ".", name}
	}

	return []executor.Command{compile, run}, nil
}

func (r *Java) Interpret(req executor.Request, outcomes []executor.RawOutcome) Verdict {
	if len(outcomes) == 0 {
		return Verdict{Status: executor.StatusInternalError}
	}
	// A short sequence or a failed first outcome means compilation stopped
	// the pipeline.
	if outcomes[0].ExitCode != 0 {
		return Verdict{
			Status: executor.StatusCompileError,
			Stdout: outcomes[0].Stdout,
			Stderr: outcomes[0].Stderr,
		}
	}

	out := terminal(outcomes)
	v := Verdict{Stdout: out.Stdout, Stderr: out.Stderr}
	if out.ExitCode == 0 {
		v.Status = executor.StatusSuccess
	} else {
		// Uncaught exception, System.exit(n), or a failing test suite — the
		// framework summary ("Tests run: ..., Failures: ...") rides along in
		// the captured streams.
		v.Status = executor.StatusRuntimeError
	}
	return v
}
