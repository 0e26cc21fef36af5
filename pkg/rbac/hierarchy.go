package rbac

// Level returns the privilege level of a role. Unknown roles are level 0,
// below every real role, so an unrecognized value can never grant access.
func Level(r Role) int {
	for i, known := range hierarchy {
		if known == r {
			return i + 1
		}
	}
	return 0
}

// CanActOn reports whether an actor may modify or delete a subject holding subjectRole.
// Requires strict dominance: peers and superiors are never reachable.
func CanActOn(actorRole, subjectRole Role) bool {
	return Level(actorRole) > Level(subjectRole)
}

// CanCreateWithRole reports whether an actor may create a subject with targetRole.
// Peers may be created, but only by actors at MANAGER level or above.
func CanCreateWithRole(actorRole, targetRole Role) bool {
	actor := Level(actorRole)
	return actor >= Level(targetRole) && actor >= Level(RoleManager)
}

// AtLeast reports whether role meets the minimum role
func AtLeast(role, min Role) bool {
	return Level(role) >= Level(min) && Level(role) > 0
}
