package properties

import (
	"context"
	"time"

	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

// Schema returns the query schema for properties
func Schema() *query.Schema[*Property] {
	return query.NewSchema[*Property](string(storage.KindProperties)).
		String("status", func(p *Property) string { return string(p.Status) }, query.Filterable|query.Sortable).
		String("type", func(p *Property) string { return string(p.Type) }, query.Filterable|query.Sortable).
		String("listingType", func(p *Property) string { return string(p.ListingType) }, query.Filterable).
		String("city", func(p *Property) string { return p.City }, query.Filterable|query.Sortable).
		String("agentId", func(p *Property) string { return p.AgentID }, query.Filterable).
		String("title", func(p *Property) string { return p.Title }, query.Sortable).
		String("address", func(p *Property) string { return p.Address }, 0).
		String("description", func(p *Property) string { return p.Description }, 0).
		Number("price", func(p *Property) (float64, bool) { return p.Price, true }, query.Rangeable|query.Sortable).
		Number("area", func(p *Property) (float64, bool) {
			if p.Area == nil {
				return 0, false
			}
			return *p.Area, true
		}, query.Rangeable|query.Sortable).
		Number("bedrooms", intField(func(p *Property) *int { return p.Bedrooms }), query.Rangeable|query.Sortable).
		Number("bathrooms", intField(func(p *Property) *int { return p.Bathrooms }), query.Rangeable|query.Sortable).
		Time("createdAt", func(p *Property) time.Time { return p.CreatedAt }, query.Sortable).
		Time("updatedAt", func(p *Property) time.Time { return p.UpdatedAt }, query.Sortable).
		Search("title", "address", "city", "description")
}

func intField(get func(*Property) *int) func(*Property) (float64, bool) {
	return func(p *Property) (float64, bool) {
		v := get(p)
		if v == nil {
			return 0, false
		}
		return float64(*v), true
	}
}

// Policy returns the access policy for properties. A property is held at the
// role of its listing agent.
func Policy(dir resource.Directory) resource.Policy[*Property] {
	return resource.Policy[*Property]{
		Kind:       storage.KindProperties,
		Name:       "property",
		Schema:     Schema(),
		CreateRole: rbac.RoleAgent,
		UpdateRole: rbac.RoleAgent,
		DeleteRole: rbac.RoleAgent,
		Subject: func(ctx context.Context, p *Property) (rbac.Role, error) {
			return resource.MemberRole(ctx, dir, p.TenantID, p.AgentID)
		},
		Validate: validateProperty,
		AuthorizeCreate: func(ctx context.Context, actor auth.Actor, p *Property) error {
			if p.AgentID == actor.ID {
				return nil
			}
			return resource.RequireMember(ctx, dir, actor.TenantID, p.AgentID, rbac.RoleAgent, "agent")
		},
		AuthorizeUpdate: func(ctx context.Context, actor auth.Actor, current *Property, patch resource.Patch[*Property]) error {
			pp, ok := patch.(*PropertyPatch)
			if !ok || pp.AgentID == nil || *pp.AgentID == current.AgentID {
				return nil
			}
			return resource.RequireMember(ctx, dir, actor.TenantID, *pp.AgentID, rbac.RoleAgent, "agent")
		},
	}
}

// Service manages property listings
type Service struct {
	*resource.Service[*Property]
}

// NewService creates the property service. dir resolves listing agents.
func NewService(store storage.Store, dir resource.Directory, deps resource.Deps) *Service {
	repo := storage.NewRepository[*Property](store, storage.KindProperties)
	return &Service{Service: resource.NewService(repo, Policy(dir), deps)}
}

// Create adds a listing to the actor's tenant. The caller holds the listing
// unless the request names another agent.
func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreatePropertyRequest) (*Property, error) {
	p := req.Property()
	if p.AgentID == "" {
		p.AgentID = actor.ID
	}
	return s.Service.Create(ctx, actor, p)
}

// Exists reports whether id is a property of tenantID
func (s *Service) Exists(ctx context.Context, tenantID, id string) (bool, error) {
	p, found, err := s.Repository().Get(ctx, id)
	if err != nil {
		return false, err
	}
	return found && p.TenantID == tenantID, nil
}
