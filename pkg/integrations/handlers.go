package integrations

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/query"
)

// Handlers handles integration HTTP requests
type Handlers struct {
	svc *Service
}

// NewHandlers creates integration handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes registers integration routes on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/integrations", h.List).Methods(http.MethodGet)
	router.HandleFunc("/integrations", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/integrations/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/integrations/{id}", h.Update).Methods(http.MethodPatch)
	router.HandleFunc("/integrations/{id}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/integrations/{id}/rotate", h.Rotate).Methods(http.MethodPost)
}

// List lists integrations of the actor's tenant
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

// Create registers an external system and returns its key
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	var req CreateIntegrationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	cred, err := h.svc.Create(r.Context(), actor, req)
	httputil.WriteResult(w, r, http.StatusCreated, cred, err)
}

// Get returns an integration by id
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	e, err := h.svc.Get(r.Context(), actor, id)
	httputil.WriteResult(w, r, http.StatusOK, e, err)
}

// Update patches an integration
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var patch IntegrationPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	e, err := h.svc.Update(r.Context(), actor, id, &patch)
	httputil.WriteResult(w, r, http.StatusOK, e, err)
}

// Delete deletes an integration
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

// Rotate issues a new key for an integration
func (h *Handlers) Rotate(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	cred, err := h.svc.Rotate(r.Context(), actor, id)
	httputil.WriteResult(w, r, http.StatusOK, cred, err)
}
