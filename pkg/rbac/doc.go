// Package rbac provides the role hierarchy used for every authorization decision.
//
// # Roles
//
// Roles form a single total order; each role has an integer level:
//
//	VIEWER(1) < USER(2) < AGENT(3) < MANAGER(4) < TENANT_ADMIN(5) < SUPER_ADMIN(6)
//
// Unknown role strings are level 0, below every real role. Nothing in this
// package errors or panics on an unknown role; it simply never grants anything.
//
// # Decisions
//
//	rbac.CanActOn(actor, subject)          // modify/delete: level(actor) > level(subject)
//	rbac.CanCreateWithRole(actor, target)  // create: level(actor) >= level(target) && actor >= MANAGER
//	rbac.AtLeast(role, min)                // per-operation minimum role
//
// Acting on a subject requires strict dominance so peers cannot demote or
// delete each other. Creating peers is allowed once the actor clears the
// MANAGER threshold.
//
// Callers translate a false result into a FORBIDDEN error (pkg/apperrors).
package rbac
