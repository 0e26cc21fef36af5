package analytics

import (
	"context"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/rbac"
)

// Counter groups one tenant collection by a field. The resource services
// implement it.
type Counter interface {
	CountBy(ctx context.Context, actor auth.Actor, field string) (map[string]int, error)
}

// Breakdown is a total plus counts per value of one or more fields
type Breakdown struct {
	Total  int                       `json:"total"`
	Counts map[string]map[string]int `json:"counts"`
}

// Summary contains the headline numbers of a tenant
type Summary struct {
	TenantID    string    `json:"tenantId"`
	Properties  Breakdown `json:"properties"`
	Inquiries   Breakdown `json:"inquiries"`
	Users       Breakdown `json:"users"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Sources are the collections a summary is built from
type Sources struct {
	Properties Counter
	Inquiries  Counter
	Users      Counter
}

// Service provides tenant analytics
type Service struct {
	src Sources
	now func() time.Time
}

// NewService creates a new analytics service
func NewService(src Sources) *Service {
	return &Service{src: src, now: func() time.Time { return time.Now().UTC() }}
}

// Summary returns counts of the actor's tenant: properties by status and
// listing type, inquiries by status and priority, and users by role and
// active flag. Managers and above only.
func (s *Service) Summary(ctx context.Context, actor auth.Actor) (*Summary, error) {
	if !actor.HasRole(rbac.RoleManager) {
		return nil, apperrors.Forbidden("analytics require role " + string(rbac.RoleManager))
	}

	out := &Summary{TenantID: actor.TenantID, GeneratedAt: s.now()}

	var err error
	if out.Properties, err = breakdown(ctx, s.src.Properties, actor, "status", "listingType"); err != nil {
		return nil, err
	}
	if out.Inquiries, err = breakdown(ctx, s.src.Inquiries, actor, "status", "priority"); err != nil {
		return nil, err
	}
	if out.Users, err = breakdown(ctx, s.src.Users, actor, "role", "isActive"); err != nil {
		return nil, err
	}
	return out, nil
}

// breakdown counts by each field. The total comes from the first field, which
// every record carries.
func breakdown(ctx context.Context, c Counter, actor auth.Actor, fields ...string) (Breakdown, error) {
	b := Breakdown{Counts: make(map[string]map[string]int, len(fields))}
	if c == nil {
		return b, nil
	}
	for i, field := range fields {
		counts, err := c.CountBy(ctx, actor, field)
		if err != nil {
			return Breakdown{}, err
		}
		b.Counts[field] = counts
		if i == 0 {
			for _, n := range counts {
				b.Total += n
			}
		}
	}
	return b, nil
}
