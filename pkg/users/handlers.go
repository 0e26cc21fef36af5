package users

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/query"
)

// Handlers handles user and session HTTP requests
type Handlers struct {
	svc *Service
}

// NewHandlers creates user handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterPublicRoutes registers routes that do not require a session
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
}

// RegisterRoutes registers routes that require an authenticated actor
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	router.HandleFunc("/auth/password", h.ChangePassword).Methods(http.MethodPost)

	router.HandleFunc("/users", h.List).Methods(http.MethodGet)
	router.HandleFunc("/users", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/users/me/profile", h.UpdateProfile).Methods(http.MethodPatch)
	router.HandleFunc("/users/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/users/{id}", h.Update).Methods(http.MethodPatch)
	router.HandleFunc("/users/{id}", h.Delete).Methods(http.MethodDelete)
}

// Login exchanges credentials for a session token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if !httputil.ParseJSONOrError(w, r, &creds) {
		return
	}
	session, err := h.svc.Authenticate(r.Context(), creds)
	httputil.WriteResult(w, r, http.StatusOK, session, err)
}

// Me returns the authenticated user
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	user, err := h.svc.Me(r.Context(), actor)
	httputil.WriteResult(w, r, http.StatusOK, user, err)
}

// ChangePassword changes the authenticated user's password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	err := h.svc.ChangePassword(r.Context(), actor, req)
	httputil.WriteResult(w, r, http.StatusNoContent, nil, err)
}

// List lists users of the actor's tenant
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

// Create creates a user
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	user, err := h.svc.Create(r.Context(), actor, req)
	httputil.WriteResult(w, r, http.StatusCreated, user, err)
}

// Get returns a user by id
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	user, err := h.svc.Get(r.Context(), actor, id)
	httputil.WriteResult(w, r, http.StatusOK, user, err)
}

// Update applies a manager patch to a user
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var patch UserPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	user, err := h.svc.Update(r.Context(), actor, id, &patch)
	httputil.WriteResult(w, r, http.StatusOK, user, err)
}

// UpdateProfile updates the authenticated user's profile
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}
	var patch ProfilePatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), actor, &patch)
	httputil.WriteResult(w, r, http.StatusOK, user, err)
}

// Delete deletes a user
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
