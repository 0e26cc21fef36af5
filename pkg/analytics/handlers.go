package analytics

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/estatehub/pkg/httputil"
)

// Handlers handles analytics HTTP requests
type Handlers struct {
	svc *Service
}

// NewHandlers creates analytics handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes registers analytics routes on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/analytics/summary", h.GetSummary).Methods(http.MethodGet)
}

// GetSummary returns the tenant summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), actor)
	httputil.WriteResult(w, r, http.StatusOK, summary, err)
}
