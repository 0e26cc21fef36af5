// Package resource implements tenant-scoped CRUD for every resource kind.
//
// A Service combines the tenant guard, the role hierarchy and the query engine
// over a storage.Repository. Each resource supplies a Policy naming its minimum
// roles, the role a record is held at (its subject), uniqueness rules and
// optional authorization hooks.
//
// Order of checks:
//
//	List/Get:  read role, tenant scope, query
//	Create:    create role, stamp id/tenant/timestamps, validate, hook, uniqueness, write
//	Update:    tenant guard, update role (or self), validate patch, CanActOn(subject) when
//	           the patch affects role or owner, hook, apply, uniqueness, write
//	Delete:    tenant guard, delete role, CanActOn(subject), delete
//
// Records of another tenant are always reported as not found.
package resource
