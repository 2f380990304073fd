package authguard

import "sort"

// Role is a fixed capability level. Token role strings are mapped into this
// set at verification time; unknown strings are dropped, never propagated.
type Role string

const (
	// RoleUser is the baseline authenticated capability.
	RoleUser Role = "user"
	// RoleModerator can act on content owned by others.
	RoleModerator Role = "moderator"
	// RoleAdmin can administer the tenant.
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleUser:      0,
		RoleModerator: 1,
		RoleAdmin:     2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleModerator,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// RoleSet is an unordered collection of roles attached to a Principal.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles, dropping duplicates.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// List returns the roles in stable order.
func (s RoleSet) List() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the roles as plain strings in stable order.
func (s RoleSet) Strings() []string {
	roles := s.List()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// NormalizeRoles maps raw role strings into the enumerated set. Unknown role
// strings are dropped. An authenticated principal never ends up with an empty
// set: callers fall back to RoleUser when nothing survives the mapping.
func NormalizeRoles(raw []string) RoleSet {
	set := make(RoleSet, len(raw))
	for _, s := range raw {
		if role, ok := ParseRole(s); ok {
			set[role] = struct{}{}
		}
	}
	return set
}
