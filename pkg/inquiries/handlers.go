package inquiries

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/query"
)

// Handlers handles inquiry HTTP requests
type Handlers struct {
	svc *Service
}

// NewHandlers creates inquiry handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes registers inquiry routes on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/inquiries", h.List).Methods(http.MethodGet)
	router.HandleFunc("/inquiries", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/inquiries/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/inquiries/{id}", h.Update).Methods(http.MethodPatch)
	router.HandleFunc("/inquiries/{id}", h.Delete).Methods(http.MethodDelete)
}

// List lists inquiries of the actor's tenant
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	spec, err := query.ParseSpec(r.URL.Query(), h.svc.Schema())
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := h.svc.List(r.Context(), actor, spec)
	httputil.WriteResult(w, r, http.StatusOK, result, err)
}

// Create creates an inquiry
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	var req CreateInquiryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	inq, err := h.svc.Create(r.Context(), actor, req)
	httputil.WriteResult(w, r, http.StatusCreated, inq, err)
}

// Get returns an inquiry by id
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	inq, err := h.svc.Get(r.Context(), actor, id)
	httputil.WriteResult(w, r, http.StatusOK, inq, err)
}

// Update patches an inquiry
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var patch InquiryPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	inq, err := h.svc.Update(r.Context(), actor, id, &patch)
	httputil.WriteResult(w, r, http.StatusOK, inq, err)
}

// Delete deletes an inquiry
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	err := h.svc.Delete(r.Context(), actor, id)
	httputil.WriteResult(w, r, http.StatusNoContent, nil, err)
}
