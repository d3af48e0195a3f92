package runner

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

// Harness is the automation variant: it wraps the inner language runner with
// driver session setup and teardown. Setup is configuration only — a session
// placeholder file plus environment pointing at the remote driver; the driver
// binary itself is an external dependency this engine does not manage. The
// teardown command is flagged AlwaysRun so the session is released even when
// the user script fails mid-run.
type Harness struct {
	reg       *Registry
	shell     string
	remoteURL string
}

const releaseSessionScript = `#!/bin/sh
# Release the provisioned driver session placeholder.
rm -f driver-session.json
`

func (h *Harness) inner(req executor.Request) (Runner, executor.Request, error) {
	innerReq := req
	innerReq.Language = req.SubLanguage
	innerReq.SubLanguage = ""
	rn, err := h.reg.Lookup(innerReq)
	if err != nil {
		return nil, innerReq, err
	}
	return rn, innerReq, nil
}

func (h *Harness) Materialize(req executor.Request, ws *workspace.Workspace) ([]executor.Command, error) {
	rn, innerReq, err := h.inner(req)
	if err != nil {
		return nil, err
	}

	cmds, err := rn.Materialize(innerReq, ws)
	if err != nil {
		return nil, err
	}

	session := fmt.Sprintf(`{"sessionId":%q,"remoteUrl":%q}`, xid.New().String(), h.remoteURL)
	if err := ws.Write("driver-session.json", session); err != nil {
		return nil, err
	}
	if err := ws.Write("release-session.sh", releaseSessionScript); err != nil {
		return nil, err
	}

	for i := range cmds {
		cmds[i].Env = append(cmds[i].Env,
			"SELENIUM_REMOTE_URL="+h.remoteURL,
			"DRIVER_SESSION_FILE=driver-session.json",
		)
	}

	teardown := executor.Command{
		Path:      h.shell,
		Args:      []string{"release-session.sh"},
		Dir:       ws.Path(),
		Language:  innerReq.Language,
		AlwaysRun: true,
	}
	return append(cmds, teardown), nil
}

func (h *Harness) Interpret(req executor.Request, outcomes []executor.RawOutcome) Verdict {
	rn, innerReq, err := h.inner(req)
	if err != nil {
		return Verdict{Status: executor.StatusInternalError}
	}
	// The trailing outcome belongs to the AlwaysRun teardown command; the
	// user's verdict comes from the inner sequence only.
	if len(outcomes) > 0 {
		outcomes = outcomes[:len(outcomes)-1]
	}
	return rn.Interpret(innerReq, outcomes)
}
