package analytics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/properties"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/tenant"
)

// fixedCounter returns canned counts per field
type fixedCounter map[string]map[string]int

func (f fixedCounter) CountBy(_ context.Context, _ auth.Actor, field string) (map[string]int, error) {
	counts, ok := f[field]
	if !ok {
		return nil, apperrors.Validation("unknown field %q", field)
	}
	return counts, nil
}

type failingCounter struct{}

func (failingCounter) CountBy(context.Context, auth.Actor, string) (map[string]int, error) {
	return nil, apperrors.Persistence("count", errors.New("connection refused"))
}

var (
	manager = auth.Actor{ID: "manager", TenantID: "t1", Role: rbac.RoleManager, IsActive: true}
	agent   = auth.Actor{ID: "agent", TenantID: "t1", Role: rbac.RoleAgent, IsActive: true}
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc := NewService(Sources{
		Inquiries: fixedCounter{
			"status":   {"NEW": 4, "CLOSED": 1},
			"priority": {"HIGH": 2, "MEDIUM": 3},
		},
		Users: fixedCounter{
			"role":     {"AGENT": 3, "MANAGER": 1},
			"isActive": {"true": 3, "false": 1},
		},
	})

	summary, err := svc.Summary(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, "t1", summary.TenantID)
	assert.Equal(t, 5, summary.Inquiries.Total)
	assert.Equal(t, 2, summary.Inquiries.Counts["priority"]["HIGH"])
	assert.Equal(t, 4, summary.Users.Total)
	assert.Equal(t, 0, summary.Properties.Total, "missing source counts as empty")
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestSummary_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(Sources{}).Summary(ctx, agent)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = NewService(Sources{Users: failingCounter{}}).Summary(ctx, manager)
	assert.Equal(t, apperrors.CodeInternal, apperrors.ErrorCode(err))
}

func TestSummary_Properties(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	props := properties.NewService(store, nil, resource.Deps{})

	for _, status := range []properties.Status{properties.StatusAvailable, properties.StatusAvailable, properties.StatusSold} {
		_, err := props.Create(ctx, manager, properties.CreatePropertyRequest{
			Title:       "Listing",
			Type:        properties.TypeCondo,
			ListingType: properties.ListingRent,
			Status:      status,
			Price:       1200,
			Address:     "2 High St",
			City:        "Springfield",
		})
		require.NoError(t, err)
	}
	other := auth.Actor{ID: "x", TenantID: "t2", Role: rbac.RoleManager, IsActive: true}
	_, err := props.Create(ctx, other, properties.CreatePropertyRequest{
		Title: "Elsewhere", Type: properties.TypeLand, ListingType: properties.ListingSale,
		Price: 1, Address: "a", City: "b",
	})
	require.NoError(t, err)

	summary, err := NewService(Sources{Properties: props}).Summary(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Properties.Total)
	assert.Equal(t, map[string]int{"AVAILABLE": 2, "SOLD": 1}, summary.Properties.Counts["status"])
	assert.Equal(t, map[string]int{"RENT": 3}, summary.Properties.Counts["listingType"])
}

func TestHandlers(t *testing.T) {
	router := mux.NewRouter()
	NewHandlers(NewService(Sources{})).RegisterRoutes(router)

	for _, tc := range []struct {
		actor auth.Actor
		want  int
	}{
		{manager, http.StatusOK},
		{agent, http.StatusForbidden},
	} {
		r := httptest.NewRequest(http.MethodGet, "/analytics/summary", nil)
		r = r.WithContext(tenant.WithActor(r.Context(), tc.actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, tc.want, w.Code, string(tc.actor.Role))
	}
}
