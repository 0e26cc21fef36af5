package resource

import (
	"context"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

// Entity is a tenant-owned record managed by a Service.
// Implementations use pointer receivers so the service can stamp identity on create.
type Entity interface {
	storage.Record

	// SetIdentity sets the id and owning tenant. Only Create calls it.
	SetIdentity(id, tenantID string)
	// SetTimestamps sets creation and modification times
	SetTimestamps(createdAt, updatedAt time.Time)
}

// Patch is a typed whitelist of mutable fields for one update operation.
// Apply must never touch the id or tenant id.
type Patch[T Entity] interface {
	// Validate checks the supplied values
	Validate() error
	// Apply copies the supplied values onto the record
	Apply(record T)
	// AffectsRole reports whether the patch changes the role or owner the record is held at
	AffectsRole() bool
	// Fields names the supplied fields
	Fields() []string
}

// Policy describes how one resource kind is protected
type Policy[T Entity] struct {
	Kind storage.Kind
	// Name is used in error messages, e.g. "property"
	Name   string
	Schema *query.Schema[T]

	// Minimum roles per operation. An empty role means any authenticated actor.
	ReadRole   rbac.Role
	CreateRole rbac.Role
	UpdateRole rbac.Role
	DeleteRole rbac.Role

	// Subject returns the role a record is held at. Delete and role-affecting
	// updates require the actor to strictly outrank it.
	Subject func(ctx context.Context, record T) (rbac.Role, error)

	// SelfUpdate reports whether the actor may update record without UpdateRole
	SelfUpdate func(actor auth.Actor, record T) bool

	// Validate checks a record before it is created
	Validate func(record T) error

	// Conflicts reports whether candidate collides with an existing record of the same tenant
	Conflicts func(existing, candidate T) bool
	// ConflictMessage is returned with the Conflict error
	ConflictMessage string

	// AuthorizeCreate runs after the role checks on create
	AuthorizeCreate func(ctx context.Context, actor auth.Actor, record T) error
	// AuthorizeUpdate runs after the role checks on update, against the current record
	AuthorizeUpdate func(ctx context.Context, actor auth.Actor, current T, patch Patch[T]) error
}

func (p Policy[T]) subject(ctx context.Context, record T) (rbac.Role, error) {
	if p.Subject == nil {
		return rbac.RoleViewer, nil
	}
	return p.Subject(ctx, record)
}

func (p Policy[T]) name() string {
	if p.Name != "" {
		return p.Name
	}
	return string(p.Kind)
}

func allows(actor auth.Actor, min rbac.Role) bool {
	return min == "" || actor.HasRole(min)
}

// Directory resolves the role of a tenant member
type Directory interface {
	// RoleOf returns the member's role. found is false when userID is not a member of tenantID.
	RoleOf(ctx context.Context, tenantID, userID string) (role rbac.Role, found bool, err error)
}

// MemberRole returns the role of a tenant member, or VIEWER when userID is empty
// or not a member of the tenant.
func MemberRole(ctx context.Context, dir Directory, tenantID, userID string) (rbac.Role, error) {
	if dir == nil || userID == "" {
		return rbac.RoleViewer, nil
	}
	role, found, err := dir.RoleOf(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return rbac.RoleViewer, nil
	}
	return role, nil
}

// RequireMember checks that userID is a member of tenantID holding at least min
func RequireMember(ctx context.Context, dir Directory, tenantID, userID string, min rbac.Role, what string) error {
	if dir == nil {
		return nil
	}
	role, found, err := dir.RoleOf(ctx, tenantID, userID)
	if err != nil {
		return apperrors.Persistence("resolve "+what, err)
	}
	if !found {
		return apperrors.Validation("unknown %s %q", what, userID)
	}
	if !rbac.AtLeast(role, min) {
		return apperrors.Validation("%s must have role %s or above", what, min)
	}
	return nil
}
