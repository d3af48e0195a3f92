package dispatch

import (
	"time"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/runner"
)

// normalize maps the raw outcome sequence to the uniform Result. Supervisor
// verdicts take precedence: a process killed for timeout or output flooding
// is never reclassified by the runner's output parsing. term is the outcome
// of the last non-teardown command that ran and carries the exit code and
// truncation flags.
func normalize(rn runner.Runner, req executor.Request, outcomes []executor.RawOutcome, term executor.RawOutcome) *executor.Result {
	var total time.Duration
	for _, o := range outcomes {
		total += o.Duration
	}

	res := &executor.Result{
		DurationMillis:  total.Milliseconds(),
		TruncatedStdout: term.TruncatedStdout,
		TruncatedStderr: term.TruncatedStderr,
	}

	switch term.Killed {
	case executor.KillTimeout:
		res.Status = executor.StatusTimeout
		res.Stdout = term.Stdout
		res.Stderr = term.Stderr
		// No exit code: the process never exited on its own.
	case executor.KillOutputFlood:
		res.Status = executor.StatusResourceExceeded
		res.Stdout = term.Stdout
		res.Stderr = term.Stderr
	default:
		v := rn.Interpret(req, outcomes)
		res.Status = v.Status
		res.Stdout = v.Stdout
		res.Stderr = v.Stderr
		exit := term.ExitCode
		res.ExitCode = &exit
	}
	return res
}
