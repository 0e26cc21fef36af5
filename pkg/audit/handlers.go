package audit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/httputil"
)

const (
	// DefaultSearchLimit caps a search when the request gives no limit
	DefaultSearchLimit = 100
	// MaxSearchLimit is the largest limit a request may ask for
	MaxSearchLimit = 1000
)

// Searcher finds recent events
type Searcher interface {
	Search(f Filter) []*Event
}

// Handlers serves the tenant audit trail
type Handlers struct {
	log Searcher
}

// NewHandlers creates audit handlers over log
func NewHandlers(log Searcher) *Handlers {
	return &Handlers{log: log}
}

// RegisterRoutes registers audit routes. The router must already require MANAGER.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/events", h.ListEvents).Methods(http.MethodGet)
}

// ListEvents returns the newest events of the caller's tenant
//
// Query parameters: actorId, action (repeatable), outcome, kind, since (RFC 3339), limit.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireActor(w, r)
	if !ok {
		return
	}

	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	f.TenantID = actor.TenantID

	events := h.log.Search(f)
	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

// ParseFilter builds a filter from query parameters. The tenant is never
// taken from the request.
func ParseFilter(values map[string][]string) (Filter, error) {
	get := func(name string) string {
		if v := values[name]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	f := Filter{
		ActorID: get("actorId"),
		Outcome: EventStatus(get("outcome")),
		Kind:    get("kind"),
		Limit:   DefaultSearchLimit,
	}
	for _, a := range values["action"] {
		if a = strings.TrimSpace(a); a != "" {
			f.Actions = append(f.Actions, EventType(a))
		}
	}

	if raw := get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, apperrors.Validation("since must be an RFC 3339 timestamp")
		}
		f.Since = since
	}
	if raw := get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxSearchLimit {
			return Filter{}, apperrors.Validation("limit must be between 1 and %d", MaxSearchLimit)
		}
		f.Limit = n
	}
	return f, nil
}
