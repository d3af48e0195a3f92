package handler

import (
	"net/http"
)

// HealthHandler reports service liveness plus the language/framework matrix,
// so clients can populate their language pickers without hardcoding it.
type HealthHandler struct {
	supported map[string][]string
}

func NewHealthHandler(supported map[string][]string) *HealthHandler {
	return &HealthHandler{supported: supported}
}

type healthResponse struct {
	Status    string              `json:"status"`
	Languages map[string][]string `json:"languages"`
}

// HandleHealth handles GET /api/health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Languages: h.supported,
	})
}
