package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/model"
	"github.com/sakif/learnquest/internal/repository"
	"github.com/sakif/learnquest/internal/service"
)

// mockEngine returns a scripted result or error and remembers the request.
type mockEngine struct {
	result *executor.Result
	err    error
	gotReq executor.Request
	calls  int
}

func (m *mockEngine) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	m.calls++
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// memSubmissionRepo collects recorded submissions.
type memSubmissionRepo struct {
	subs []model.Submission
	err  error
}

func (m *memSubmissionRepo) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if m.err != nil {
		return m.err
	}
	m.subs = append(m.subs, *sub)
	return nil
}

func (m *memSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	for _, s := range m.subs {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memSubmissionRepo) ListSubmissionsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Submission, error) {
	return m.subs, nil
}

func newExecuteHandler(engine executor.Engine, repo *memSubmissionRepo) *ExecuteHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecuteHandler(engine, service.NewSubmissionService(repo, logger), logger)
}

func postExecute(t *testing.T, h *ExecuteHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleExecute(rec, req)
	return rec
}

func TestHandleExecute_Success(t *testing.T) {
	exit := 0
	engine := &mockEngine{result: &executor.Result{
		Status:         executor.StatusSuccess,
		Stdout:         "hi\n",
		DurationMillis: 42,
		ExitCode:       &exit,
	}}
	repo := &memSubmissionRepo{}
	h := newExecuteHandler(engine, repo)

	rec := postExecute(t, h, `{"language":"python","code":"print('hi')"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var res executor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, executor.StatusSuccess, res.Status)
	assert.Equal(t, "hi\n", res.Stdout)

	assert.Equal(t, executor.LangPython, engine.gotReq.Language)

	// The run is recorded as an anonymous submission.
	require.Len(t, repo.subs, 1)
	assert.Empty(t, repo.subs[0].UserID)
	assert.Equal(t, "success", repo.subs[0].Status)
}

func TestHandleExecute_FailedRunStillStatus200(t *testing.T) {
	engine := &mockEngine{result: &executor.Result{
		Status: executor.StatusTimeout,
		Stdout: "partial",
	}}
	h := newExecuteHandler(engine, &memSubmissionRepo{})

	// Classified outcomes are payload, not HTTP failures.
	rec := postExecute(t, h, `{"language":"python","code":"while True: pass"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var res executor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, executor.StatusTimeout, res.Status)
	assert.Nil(t, res.ExitCode)
}

func TestHandleExecute_Unsupported(t *testing.T) {
	engine := &mockEngine{err: fmt.Errorf("%w: ruby/rspec", executor.ErrUnsupported)}
	h := newExecuteHandler(engine, &memSubmissionRepo{})

	rec := postExecute(t, h, `{"language":"ruby","code":"puts 1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errRes ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errRes))
	assert.Equal(t, "unsupported_configuration", errRes.Error)
}

func TestHandleExecute_Validation(t *testing.T) {
	h := newExecuteHandler(&mockEngine{}, &memSubmissionRepo{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"language":`},
		{"missing language", `{"code":"print(1)"}`},
		{"missing code", `{"language":"python"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postExecute(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleExecute_EngineFaultIs500(t *testing.T) {
	engine := &mockEngine{err: errors.New("dispatch: workspace: creating dir: disk full")}
	h := newExecuteHandler(engine, &memSubmissionRepo{})

	rec := postExecute(t, h, `{"language":"python","code":"print(1)"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Internals must not leak into the response body.
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestHandleExecute_RecordFailureDoesNotLoseResult(t *testing.T) {
	engine := &mockEngine{result: &executor.Result{Status: executor.StatusSuccess}}
	repo := &memSubmissionRepo{err: errors.New("sqlite: database is locked")}
	h := newExecuteHandler(engine, repo)

	rec := postExecute(t, h, `{"language":"python","code":"print(1)"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "a storage hiccup must not cost the caller their result")
}

func TestHandleExecute_BodyTooLarge(t *testing.T) {
	h := newExecuteHandler(&mockEngine{}, &memSubmissionRepo{})

	big := bytes.Repeat([]byte("a"), maxRequestBody+1024)
	body := `{"language":"python","code":"` + string(big) + `"}`
	rec := postExecute(t, h, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h := NewHealthHandler(map[string][]string{
		"python": {"pytest", "unittest"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var res healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, []string{"pytest", "unittest"}, res.Languages["python"])
}
