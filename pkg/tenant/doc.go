// Package tenant enforces tenant isolation, the one invariant every estatehub
// operation depends on: a record is visible or mutable only to actors of the
// tenant that owns it.
//
// Two primitives:
//
//	rec, err := tenant.AssertSameTenant(actor, rec, found, "property")
//	visible := tenant.ScopeCollection(actor, records)
//
// AssertSameTenant reports cross-tenant records as NOT_FOUND, never FORBIDDEN.
// ScopeCollection drops foreign records before the query engine sees them.
package tenant
