package authguard

// Principal is the authenticated identity attached to a request. It is owned
// by the request context that produced it and is never persisted.
//
// An empty ID is reserved for the synthetic system principal installed when
// the service-wide authentication toggle is off.
type Principal struct {
	ID    string
	Email string
	Roles RoleSet
}

// IsSystem reports whether this is the synthetic principal produced under the
// global bypass.
func (p *Principal) IsSystem() bool {
	return p != nil && p.ID == ""
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	return p.Roles.Has(role)
}

// SystemPrincipal builds the principal served while authentication is
// disabled service-wide: a full-capability administrator scoped to the
// configured system domain.
func SystemPrincipal(domain string) *Principal {
	if domain == "" {
		domain = "localhost"
	}
	return &Principal{
		ID:    "",
		Email: "system@" + domain,
		Roles: NewRoleSet(RoleAdmin, RoleUser),
	}
}
