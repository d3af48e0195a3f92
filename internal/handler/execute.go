package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/learnquest/internal/apperror"
	"github.com/sakif/learnquest/internal/auth"
	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/service"
)

// maxRequestBody bounds the execute request payload (source plus aux files).
const maxRequestBody = 1 << 20 // 1 MiB

// ExecuteHandler runs submitted code through the execution engine and records
// the outcome as a submission.
type ExecuteHandler struct {
	engine      executor.Engine
	submissions *service.SubmissionService
	logger      *slog.Logger
}

func NewExecuteHandler(engine executor.Engine, submissions *service.SubmissionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{engine: engine, submissions: submissions, logger: logger}
}

// HandleExecute handles POST /api/execute.
//
// The engine returns an error only when the request never became an
// execution (unsupported configuration) or the engine itself broke; every
// outcome of the user's code, including kills, arrives as a classified
// Result with status 200.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req executor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body is not valid JSON"))
		return
	}

	if req.Language == "" {
		writeError(w, apperror.ValidationFailed("language", "language is required"))
		return
	}
	if req.Code == "" {
		writeError(w, apperror.ValidationFailed("code", "code is required"))
		return
	}

	result, err := h.engine.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, executor.ErrUnsupported) {
			writeError(w, apperror.Unsupported(err.Error()))
			return
		}
		h.logger.Error("execution failed",
			slog.String("language", string(req.Language)),
			slog.String("framework", req.Framework),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	// Recording is best-effort: a storage hiccup must not cost the user
	// their execution result.
	userID, _ := auth.UserIDFromContext(r.Context())
	if _, err := h.submissions.Record(r.Context(), userID, req, result); err != nil {
		h.logger.Warn("submission not recorded", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, result)
}
