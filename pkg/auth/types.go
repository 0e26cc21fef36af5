package auth

import (
	"github.com/platinummonkey/estatehub/pkg/rbac"
)

// Actor is the authenticated identity making a request.
// It is derived from a verified session token and never persisted.
type Actor struct {
	ID       string    `json:"id"`
	TenantID string    `json:"tenant_id"`
	Role     rbac.Role `json:"role"`
	IsActive bool      `json:"is_active"`
}

// Level returns the actor's role level
func (a Actor) Level() int {
	return rbac.Level(a.Role)
}

// HasRole checks if the actor's role is at least min in the role hierarchy
func (a Actor) HasRole(min rbac.Role) bool {
	return rbac.AtLeast(a.Role, min)
}

// Credentials is a login request
type Credentials struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned after a successful login
type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	Actor     Actor  `json:"actor"`
}
