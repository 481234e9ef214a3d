package identity

// Role is a marketplace principal role. Stored as text in Postgres and
// embedded verbatim in access/refresh token claims.
type Role string

const (
	// RoleAdmin can manage the marketplace, including creating other admins.
	RoleAdmin Role = "ADMIN"
	// RoleSeller owns stores and products.
	RoleSeller Role = "SELLER"
	// RoleClient is an ordinary buyer account.
	RoleClient Role = "CLIENT"
)

// ParseRole maps a stored/claim string onto a known Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleSeller, RoleClient:
		return Role(s), true
	}
	return "", false
}

// HasRole reports whether want is present in have.
func HasRole(have []Role, want Role) bool {
	for _, r := range have {
		if r == want {
			return true
		}
	}
	return false
}

// Authorized is the role-gate rule for protected routes.
//
// An empty required set means "any authenticated principal". Otherwise the
// principal passes when it carries at least one of the required roles.
// Fails closed: no roles, no access.
func Authorized(have []Role, required []Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if HasRole(have, want) {
			return true
		}
	}
	return false
}

// RoleStrings converts roles for storage/claims.
func RoleStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// RolesFromStrings parses stored/claim strings, silently dropping unknown values.
// Unknown roles grant nothing, so dropping them fails closed.
func RolesFromStrings(ss []string) []Role {
	out := make([]Role, 0, len(ss))
	for _, s := range ss {
		if r, ok := ParseRole(s); ok {
			out = append(out, r)
		}
	}
	return out
}
