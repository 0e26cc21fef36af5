package properties

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/tenant"
)

// directory is a fixed tenant membership table keyed by tenant then user id
type directory map[string]map[string]rbac.Role

func (d directory) RoleOf(_ context.Context, tenantID, userID string) (rbac.Role, bool, error) {
	role, ok := d[tenantID][userID]
	return role, ok, nil
}

var (
	agentA   = auth.Actor{ID: "agent-a", TenantID: "t1", Role: rbac.RoleAgent, IsActive: true}
	agentB   = auth.Actor{ID: "agent-b", TenantID: "t1", Role: rbac.RoleAgent, IsActive: true}
	manager  = auth.Actor{ID: "manager", TenantID: "t1", Role: rbac.RoleManager, IsActive: true}
	viewer   = auth.Actor{ID: "viewer", TenantID: "t1", Role: rbac.RoleViewer, IsActive: true}
	outsider = auth.Actor{ID: "other", TenantID: "t2", Role: rbac.RoleSuperAdmin, IsActive: true}
)

func newService(t *testing.T) *Service {
	t.Helper()
	dir := directory{
		"t1": {
			agentA.ID:  rbac.RoleAgent,
			agentB.ID:  rbac.RoleAgent,
			manager.ID: rbac.RoleManager,
			viewer.ID:  rbac.RoleViewer,
		},
		"t2": {outsider.ID: rbac.RoleSuperAdmin},
	}
	return NewService(storage.NewMemoryStore(), dir, resource.Deps{})
}

func listing(title, city string, price float64) CreatePropertyRequest {
	return CreatePropertyRequest{
		Title:       title,
		Type:        TypeHouse,
		ListingType: ListingSale,
		Price:       price,
		Address:     "1 Main St",
		City:        city,
	}
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(n int) *int { return &n }

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults agent and status and stamps tenant", func(t *testing.T) {
		svc := newService(t)
		req := listing("Cottage", "Springfield", 250000)
		req.TenantID = "t2"
		req.Type = "house"

		p, err := svc.Create(ctx, agentA, req)
		require.NoError(t, err)
		assert.Equal(t, "t1", p.TenantID)
		assert.Equal(t, agentA.ID, p.AgentID)
		assert.Equal(t, StatusAvailable, p.Status)
		assert.Equal(t, TypeHouse, p.Type)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Create(ctx, viewer, listing("x", "y", 1))
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("assigning to a non agent", func(t *testing.T) {
		svc := newService(t)
		req := listing("x", "y", 1)
		req.AgentID = viewer.ID
		_, err := svc.Create(ctx, manager, req)
		assert.True(t, apperrors.IsValidation(err))

		req.AgentID = outsider.ID
		_, err = svc.Create(ctx, manager, req)
		assert.True(t, apperrors.IsValidation(err), "agents of other tenants are unknown")
	})

	t.Run("invalid enum", func(t *testing.T) {
		svc := newService(t)
		req := listing("x", "y", 1)
		req.ListingType = "LEASE"
		_, err := svc.Create(ctx, agentA, req)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestDelete_RoleDominance(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	req := listing("Manager listing", "Springfield", 100)
	req.AgentID = manager.ID
	managerOwned, err := svc.Create(ctx, manager, req)
	require.NoError(t, err)

	err = svc.Delete(ctx, agentA, managerOwned.ID)
	assert.True(t, apperrors.IsForbidden(err), "agent cannot delete a manager's listing")

	agentOwned, err := svc.Create(ctx, agentA, listing("Agent listing", "Springfield", 100))
	require.NoError(t, err)

	err = svc.Delete(ctx, agentB, agentOwned.ID)
	assert.True(t, apperrors.IsForbidden(err), "peer agents cannot delete each other's listings")

	require.NoError(t, svc.Delete(ctx, manager, agentOwned.ID))

	err = svc.Delete(ctx, outsider, managerOwned.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdate_Reassignment(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	p, err := svc.Create(ctx, agentA, listing("Loft", "Shelbyville", 300000))
	require.NoError(t, err)

	newPrice := 280000.0
	updated, err := svc.Update(ctx, agentB, p.ID, &PropertyPatch{Price: &newPrice})
	require.NoError(t, err, "plain edits need only the agent role")
	assert.Equal(t, newPrice, updated.Price)

	target := agentB.ID
	_, err = svc.Update(ctx, agentB, p.ID, &PropertyPatch{AgentID: &target})
	assert.True(t, apperrors.IsForbidden(err), "peer cannot take over a listing")

	updated, err = svc.Update(ctx, manager, p.ID, &PropertyPatch{AgentID: &target})
	require.NoError(t, err)
	assert.Equal(t, agentB.ID, updated.AgentID)

	bad := viewer.ID
	_, err = svc.Update(ctx, manager, p.ID, &PropertyPatch{AgentID: &bad})
	assert.True(t, apperrors.IsValidation(err))

	status := Status("sold")
	updated, err = svc.Update(ctx, manager, p.ID, &PropertyPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusSold, updated.Status)
}

func seedListings(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	fixtures := []struct {
		title    string
		city     string
		price    float64
		area     *float64
		bedrooms *int
	}{
		{"Seaside villa", "Springfield", 900000, floatPtr(320), intPtr(5)},
		{"City flat", "Shelbyville", 180000, floatPtr(60), intPtr(2)},
		{"Family home", "Springfield", 450000, floatPtr(180), intPtr(4)},
		{"Empty lot", "Springfield", 75000, nil, nil},
		{"Starter home", "Capital City", 200000, floatPtr(95), intPtr(3)},
	}
	for _, fx := range fixtures {
		req := listing(fx.title, fx.city, fx.price)
		req.Area = fx.area
		req.Bedrooms = fx.bedrooms
		_, err := svc.Create(ctx, agentA, req)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, outsider, listing("Other tenant", "Springfield", 1))
	require.NoError(t, err)
}

func TestList_Queries(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seedListings(t, svc)

	tests := []struct {
		name      string
		params    string
		wantTotal int
		wantFirst string
	}{
		{"all of tenant", "", 5, ""},
		{"city filter case insensitive", "city=springfield", 3, ""},
		{"price range inclusive", "minPrice=180000&maxPrice=450000&sortBy=price&sortOrder=asc", 3, "City flat"},
		{"area range excludes missing", "minArea=0", 4, ""},
		{"bedrooms", "minBedrooms=4&sortBy=bedrooms&sortOrder=desc", 2, "Seaside villa"},
		{"search", "search=HOME&sortBy=title&sortOrder=asc", 2, "Family home"},
		{"search and filter", "search=home&city=capital+city", 1, "Starter home"},
		{"no match", "status=SOLD", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.params)
			require.NoError(t, err)
			spec, err := query.ParseSpec(values, svc.Schema())
			require.NoError(t, err)

			result, err := svc.List(ctx, agentA, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, result.Total)
			for _, p := range result.Items {
				assert.Equal(t, "t1", p.TenantID)
			}
			if tt.wantFirst != "" {
				require.NotEmpty(t, result.Items)
				assert.Equal(t, tt.wantFirst, result.Items[0].Title)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seedListings(t, svc)

	for page, want := range map[int]int{1: 2, 2: 2, 3: 1, 4: 0} {
		spec := query.DefaultSpec()
		spec.Page = page
		spec.Limit = 2
		result, err := svc.List(ctx, agentA, spec)
		require.NoError(t, err)
		assert.Len(t, result.Items, want, "page %d", page)
		assert.Equal(t, 5, result.Total)
		assert.Equal(t, 3, result.TotalPages)
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	p, err := svc.Create(ctx, agentA, listing("x", "y", 1))
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, "t1", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "t2", p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandlers(t *testing.T) {
	svc := newService(t)
	router := mux.NewRouter()
	NewHandlers(svc).RegisterRoutes(router)

	do := func(actor auth.Actor, method, path, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, strings.NewReader(body))
		r = r.WithContext(tenant.WithActor(r.Context(), actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	w := do(agentA, http.MethodPost, "/properties",
		`{"title":"Barn","type":"LAND","listingType":"SALE","price":1000,"address":"Farm Rd","city":"Ogdenville"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(agentA, http.MethodGet, "/properties?minPrice=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(agentA, http.MethodGet, "/properties?city=ogdenville", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(outsider, http.MethodGet, "/properties", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)

	w = do(agentA, http.MethodPatch, fmt.Sprintf("/properties/%s", "missing"), `{"price":5}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
