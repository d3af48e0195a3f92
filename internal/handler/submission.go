package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/learnquest/internal/apperror"
	"github.com/sakif/learnquest/internal/auth"
	"github.com/sakif/learnquest/internal/repository"
	"github.com/sakif/learnquest/internal/service"
)

// SubmissionHandler serves the authenticated user's execution history.
type SubmissionHandler struct {
	submissions *service.SubmissionService
	logger      *slog.Logger
}

func NewSubmissionHandler(submissions *service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, logger: logger}
}

// HandleList handles GET /api/submissions?limit=&offset=.
func (h *SubmissionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	opts := repository.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	subs, err := h.submissions.List(r.Context(), userID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subs)
}

// HandleGetByID handles GET /api/submissions/{id}.
func (h *SubmissionHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	id := chi.URLParam(r, "id")
	sub, err := h.submissions.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

// queryInt parses a non-negative integer query parameter, 0 when absent or
// malformed.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
