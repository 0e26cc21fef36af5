package tenant

import (
	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
)

// Record is any entity owned by exactly one tenant
type Record interface {
	GetID() string
	GetTenantID() string
}

// AssertSameTenant returns record if it belongs to the actor's tenant.
//
// A record of another tenant is reported exactly like an absent one, so callers
// can never confirm that an id exists elsewhere.
func AssertSameTenant[T Record](actor auth.Actor, record T, found bool, kind string) (T, error) {
	var zero T
	if !found || !Owns(actor, record) {
		return zero, apperrors.NotFound(kind)
	}
	return record, nil
}

// ScopeCollection returns the records owned by the actor's tenant, preserving order.
// It must run before any filtering, sorting or counting.
func ScopeCollection[T Record](actor auth.Actor, records []T) []T {
	scoped := make([]T, 0, len(records))
	if actor.TenantID == "" {
		return scoped
	}
	for _, r := range records {
		if Owns(actor, r) {
			scoped = append(scoped, r)
		}
	}
	return scoped
}

// Owns reports whether the actor's tenant owns record
func Owns(actor auth.Actor, record Record) bool {
	return actor.TenantID != "" && record.GetTenantID() == actor.TenantID
}
