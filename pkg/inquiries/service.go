package inquiries

import (
	"context"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

// PropertyLookup checks that a property belongs to a tenant
type PropertyLookup interface {
	Exists(ctx context.Context, tenantID, id string) (bool, error)
}

// Schema returns the query schema for inquiries
func Schema() *query.Schema[*Inquiry] {
	return query.NewSchema[*Inquiry](string(storage.KindInquiries)).
		String("status", func(i *Inquiry) string { return string(i.Status) }, query.Filterable|query.Sortable).
		String("priority", func(i *Inquiry) string { return string(i.Priority) }, query.Filterable).
		String("source", func(i *Inquiry) string { return string(i.Source) }, query.Filterable).
		String("propertyId", func(i *Inquiry) string { return i.PropertyID }, query.Filterable).
		String("assignedTo", func(i *Inquiry) string { return i.AssignedTo }, query.Filterable).
		String("name", func(i *Inquiry) string { return i.Name }, query.Sortable).
		String("email", func(i *Inquiry) string { return i.Email }, query.Sortable).
		String("subject", func(i *Inquiry) string { return i.Subject }, query.Sortable).
		String("message", func(i *Inquiry) string { return i.Message }, 0).
		Time("createdAt", func(i *Inquiry) time.Time { return i.CreatedAt }, query.Sortable).
		Time("updatedAt", func(i *Inquiry) time.Time { return i.UpdatedAt }, query.Sortable).
		Search("name", "email", "subject", "message")
}

// Policy returns the access policy for inquiries. An inquiry is held at the
// role of its assigned agent, or VIEWER while unassigned.
func Policy(dir resource.Directory, props PropertyLookup) resource.Policy[*Inquiry] {
	checkProperty := func(ctx context.Context, tenantID, propertyID string) error {
		if props == nil || propertyID == "" {
			return nil
		}
		ok, err := props.Exists(ctx, tenantID, propertyID)
		if err != nil {
			return apperrors.Persistence("resolve property", err)
		}
		if !ok {
			return apperrors.Validation("unknown property %q", propertyID)
		}
		return nil
	}

	return resource.Policy[*Inquiry]{
		Kind:       storage.KindInquiries,
		Name:       "inquiry",
		Schema:     Schema(),
		CreateRole: rbac.RoleUser,
		UpdateRole: rbac.RoleAgent,
		DeleteRole: rbac.RoleAgent,
		Subject: func(ctx context.Context, i *Inquiry) (rbac.Role, error) {
			return resource.MemberRole(ctx, dir, i.TenantID, i.AssignedTo)
		},
		Validate: validateInquiry,
		AuthorizeCreate: func(ctx context.Context, actor auth.Actor, i *Inquiry) error {
			if err := checkProperty(ctx, actor.TenantID, i.PropertyID); err != nil {
				return err
			}
			if i.AssignedTo == "" {
				return nil
			}
			if !actor.HasRole(rbac.RoleAgent) {
				return apperrors.Forbidden("only agents can assign inquiries")
			}
			return resource.RequireMember(ctx, dir, actor.TenantID, i.AssignedTo, rbac.RoleAgent, "assignee")
		},
		AuthorizeUpdate: func(ctx context.Context, actor auth.Actor, current *Inquiry, patch resource.Patch[*Inquiry]) error {
			p, ok := patch.(*InquiryPatch)
			if !ok {
				return nil
			}
			if p.PropertyID != nil {
				if err := checkProperty(ctx, actor.TenantID, *p.PropertyID); err != nil {
					return err
				}
			}
			if p.AssignedTo != nil && *p.AssignedTo != "" && *p.AssignedTo != current.AssignedTo {
				return resource.RequireMember(ctx, dir, actor.TenantID, *p.AssignedTo, rbac.RoleAgent, "assignee")
			}
			return nil
		},
	}
}

// Service manages inquiries
type Service struct {
	*resource.Service[*Inquiry]
}

// NewService creates the inquiry service
func NewService(store storage.Store, dir resource.Directory, props PropertyLookup, deps resource.Deps) *Service {
	repo := storage.NewRepository[*Inquiry](store, storage.KindInquiries)
	return &Service{Service: resource.NewService(repo, Policy(dir, props), deps)}
}

// Create records an inquiry in the actor's tenant
func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateInquiryRequest) (*Inquiry, error) {
	i := req.Inquiry()
	i.CreatedBy = actor.ID
	return s.Service.Create(ctx, actor, i)
}
