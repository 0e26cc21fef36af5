package rbac

import (
	"encoding/json"
	"strings"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
)

// Role represents a tenant-level role
type Role string

// Built-in roles, lowest privilege first
const (
	RoleViewer      Role = "VIEWER"
	RoleUser        Role = "USER"
	RoleAgent       Role = "AGENT"
	RoleManager     Role = "MANAGER"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleSuperAdmin  Role = "SUPER_ADMIN"
)

// hierarchy is the single ordered role table. Index+1 is the role level.
var hierarchy = [...]Role{
	RoleViewer,
	RoleUser,
	RoleAgent,
	RoleManager,
	RoleTenantAdmin,
	RoleSuperAdmin,
}

// Roles returns all known roles ordered by increasing privilege
func Roles() []Role {
	out := make([]Role, len(hierarchy))
	copy(out, hierarchy[:])
	return out
}

// ParseRole parses a role name. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if Level(r) == 0 {
		return "", apperrors.Validation("invalid role %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return Level(r) > 0
}

// Level returns the role's level
func (r Role) Level() int {
	return Level(r)
}

// String returns the role name
func (r Role) String() string {
	return string(r)
}

// UnmarshalJSON accepts role names in any case
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Role(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}
