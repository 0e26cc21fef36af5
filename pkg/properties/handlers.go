package properties

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/query"
)

// Handlers handles property HTTP requests
type Handlers struct {
	svc *Service
}

// NewHandlers creates property handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes registers property routes on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/properties", h.List).Methods(http.MethodGet)
	router.HandleFunc("/properties", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/properties/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/properties/{id}", h.Update).Methods(http.MethodPatch)
	router.HandleFunc("/properties/{id}", h.Delete).Methods(http.MethodDelete)
}

// List lists properties of the actor's tenant
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

// Create creates a property
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	var req CreatePropertyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	p, err := h.svc.Create(r.Context(), actor, req)
	httputil.WriteResult(w, r, http.StatusCreated, p, err)
}

// Get returns a property by id
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), actor, id)
	httputil.WriteResult(w, r, http.StatusOK, p, err)
}

// Update patches a property
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var patch PropertyPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	p, err := h.svc.Update(r.Context(), actor, id, &patch)
	httputil.WriteResult(w, r, http.StatusOK, p, err)
}

// Delete deletes a property
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
