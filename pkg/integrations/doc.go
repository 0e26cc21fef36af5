// Package integrations issues API credentials to external systems.
//
// A tenant manager registers a system (a listing portal, a CRM) under a name
// unique within the tenant and receives an ehk_ key once. Only the SHA-256 of
// the key is stored, together with a short prefix for display. Rotating a key
// invalidates the old one and counts as a role-affecting change, so it needs
// an actor who outranks the credential's creator.
//
// Requests carrying a valid key act as a read-only VIEWER of the tenant.
package integrations
