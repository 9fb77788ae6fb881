package auth

// Role is the closed set of permission levels a user can hold
type Role string

const (
	// RoleUser is the default role assigned on signup
	RoleUser Role = "user"
	// RoleGuide leads tours
	RoleGuide Role = "guide"
	// RoleLeadGuide manages guides and tours
	RoleLeadGuide Role = "lead-guide"
	// RoleAdmin manages users
	RoleAdmin Role = "admin"
)

// AllRoles lists every valid role.
func AllRoles() []Role {
	return []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// In reports whether r is listed in roles.
func (r Role) In(roles ...Role) bool {
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}
