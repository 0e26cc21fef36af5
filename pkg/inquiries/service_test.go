package inquiries

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/tenant"
)

type directory map[string]map[string]rbac.Role

func (d directory) RoleOf(_ context.Context, tenantID, userID string) (rbac.Role, bool, error) {
	role, ok := d[tenantID][userID]
	return role, ok, nil
}

// listings maps tenant id to its property ids
type listings map[string][]string

func (l listings) Exists(_ context.Context, tenantID, id string) (bool, error) {
	for _, p := range l[tenantID] {
		if p == id {
			return true, nil
		}
	}
	return false, nil
}

var (
	user     = auth.Actor{ID: "user", TenantID: "t1", Role: rbac.RoleUser, IsActive: true}
	viewer   = auth.Actor{ID: "viewer", TenantID: "t1", Role: rbac.RoleViewer, IsActive: true}
	agentA   = auth.Actor{ID: "agent-a", TenantID: "t1", Role: rbac.RoleAgent, IsActive: true}
	agentB   = auth.Actor{ID: "agent-b", TenantID: "t1", Role: rbac.RoleAgent, IsActive: true}
	manager  = auth.Actor{ID: "manager", TenantID: "t1", Role: rbac.RoleManager, IsActive: true}
	outsider = auth.Actor{ID: "other", TenantID: "t2", Role: rbac.RoleTenantAdmin, IsActive: true}
)

func newService(t *testing.T, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.NoOp()
	}
	t.Helper()
	dir := directory{
		"t1": {
			user.ID:    rbac.RoleUser,
			viewer.ID:  rbac.RoleViewer,
			agentA.ID:  rbac.RoleAgent,
			agentB.ID:  rbac.RoleAgent,
			manager.ID: rbac.RoleManager,
		},
		"t2": {outsider.ID: rbac.RoleTenantAdmin},
	}
	props := listings{"t1": {"prop-1"}, "t2": {"prop-2"}}
	return NewService(storage.NewMemoryStore(), dir, props, resource.Deps{Audit: auditLog})
}

func request(name, subject string) CreateInquiryRequest {
	return CreateInquiryRequest{
		Name:    name,
		Email:   strings.ToLower(name) + "@example.com",
		Subject: subject,
		Message: "Is this still available?",
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		svc := newService(t, nil)
		req := request("Alice", "Viewing")
		req.TenantID = "t2"
		req.Priority = "high"

		inq, err := svc.Create(ctx, user, req)
		require.NoError(t, err)
		assert.Equal(t, "t1", inq.TenantID)
		assert.Equal(t, StatusNew, inq.Status)
		assert.Equal(t, PriorityHigh, inq.Priority)
		assert.Equal(t, SourceWebsite, inq.Source)
		assert.Equal(t, user.ID, inq.CreatedBy)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		svc := newService(t, nil)
		_, err := svc.Create(ctx, viewer, request("Bob", "Hi"))
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("property must belong to tenant", func(t *testing.T) {
		svc := newService(t, nil)
		req := request("Carol", "Offer")
		req.PropertyID = "prop-2"
		_, err := svc.Create(ctx, agentA, req)
		assert.True(t, apperrors.IsValidation(err))

		req.PropertyID = "prop-1"
		_, err = svc.Create(ctx, agentA, req)
		assert.NoError(t, err)
	})

	t.Run("assignment", func(t *testing.T) {
		svc := newService(t, nil)
		req := request("Dan", "Rent")
		req.AssignedTo = agentA.ID
		_, err := svc.Create(ctx, user, req)
		assert.True(t, apperrors.IsForbidden(err), "users cannot assign")

		req.AssignedTo = viewer.ID
		_, err = svc.Create(ctx, manager, req)
		assert.True(t, apperrors.IsValidation(err), "assignee must be an agent")

		req.AssignedTo = agentB.ID
		inq, err := svc.Create(ctx, manager, req)
		require.NoError(t, err)
		assert.Equal(t, agentB.ID, inq.AssignedTo)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc := newService(t, nil)
		req := request("Eve", "Hi")
		req.Email = "not-an-email"
		_, err := svc.Create(ctx, user, req)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestUpdate_Assignment(t *testing.T) {
	ctx := context.Background()
	auditLog := audit.NewMemoryLogger(100)
	svc := newService(t, auditLog)

	inq, err := svc.Create(ctx, user, request("Frank", "Price"))
	require.NoError(t, err)

	status := Status("in_progress")
	_, err = svc.Update(ctx, user, inq.ID, &InquiryPatch{Status: &status})
	assert.True(t, apperrors.IsForbidden(err), "users cannot triage")

	self := agentA.ID
	updated, err := svc.Update(ctx, agentA, inq.ID, &InquiryPatch{AssignedTo: &self, Status: &status})
	require.NoError(t, err, "unassigned inquiries can be picked up")
	assert.Equal(t, agentA.ID, updated.AssignedTo)
	assert.Equal(t, StatusInProgress, updated.Status)

	other := agentB.ID
	_, err = svc.Update(ctx, agentB, inq.ID, &InquiryPatch{AssignedTo: &other})
	assert.True(t, apperrors.IsForbidden(err), "peer cannot take an assigned inquiry")

	updated, err = svc.Update(ctx, manager, inq.ID, &InquiryPatch{AssignedTo: &other})
	require.NoError(t, err)
	assert.Equal(t, agentB.ID, updated.AssignedTo)

	missing := "prop-2"
	_, err = svc.Update(ctx, manager, inq.ID, &InquiryPatch{PropertyID: &missing})
	assert.True(t, apperrors.IsValidation(err))

	denied := auditLog.Search(audit.Filter{Actions: []audit.EventType{audit.EventTypeAuthzAccessDenied}})
	assert.NotEmpty(t, denied)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	req := request("Gina", "Visit")
	req.AssignedTo = agentA.ID
	inq, err := svc.Create(ctx, manager, req)
	require.NoError(t, err)

	err = svc.Delete(ctx, agentB, inq.ID)
	assert.True(t, apperrors.IsForbidden(err))

	err = svc.Delete(ctx, outsider, inq.ID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, manager, inq.ID))
	_, err = svc.Get(ctx, manager, inq.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestList_Queries(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	for _, fx := range []struct {
		name, subject string
		priority      Priority
		source        Source
	}{
		{"Hank", "Garden size", PriorityLow, SourcePhone},
		{"Ivy", "Parking", PriorityUrgent, SourceEmail},
		{"Jack", "Garden shed", PriorityUrgent, SourceWebsite},
	} {
		req := request(fx.name, fx.subject)
		req.Priority = fx.priority
		req.Source = fx.source
		_, err := svc.Create(ctx, user, req)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, outsider, request("Kim", "Garden"))
	require.NoError(t, err)

	tests := []struct {
		params    string
		wantTotal int
		wantFirst string
	}{
		{"", 3, ""},
		{"priority=urgent&sortBy=name&sortOrder=desc", 2, "Jack"},
		{"source=PHONE", 1, "Hank"},
		{"search=garden&sortBy=name&sortOrder=asc", 2, "Hank"},
		{"status=CLOSED", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.params, func(t *testing.T) {
			values, err := url.ParseQuery(tt.params)
			require.NoError(t, err)
			spec, err := query.ParseSpec(values, svc.Schema())
			require.NoError(t, err)

			result, err := svc.List(ctx, viewer, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, result.Total)
			if tt.wantFirst != "" {
				require.NotEmpty(t, result.Items)
				assert.Equal(t, tt.wantFirst, result.Items[0].Name)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	svc := newService(t, nil)
	router := mux.NewRouter()
	NewHandlers(svc).RegisterRoutes(router)

	do := func(actor auth.Actor, method, path, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, strings.NewReader(body))
		r = r.WithContext(tenant.WithActor(r.Context(), actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	w := do(user, http.MethodPost, "/inquiries",
		`{"name":"Lou","email":"lou@example.com","subject":"Tour","message":"Saturday?","source":"walk_in"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"source":"WALK_IN"`)

	w = do(user, http.MethodPost, "/inquiries", `{"name":"Lou","status":"CLOSED"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "status is not settable on create")

	w = do(viewer, http.MethodGet, "/inquiries?source=walk_in", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(agentA, http.MethodPatch, "/inquiries/missing", `{"notes":"called back"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
