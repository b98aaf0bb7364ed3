package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type DashboardHandler struct {
	responses *service.ResponseService
	ping      func(context.Context) error
}

// NewDashboardHandler serves the owner dashboard and the health probe. ping
// checks the backing store.
func NewDashboardHandler(responses *service.ResponseService, ping func(context.Context) error) *DashboardHandler {
	return &DashboardHandler{responses: responses, ping: ping}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.responses.Dashboard(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
