package auth

// Claims is the subset of token claims the gateway reads. Keycloak puts roles
// under realm_access, other issuers use a flat role claim.
type Claims struct {
	Subject     string   `json:"sub"`
	Role        string   `json:"role"`
	Roles       []string `json:"roles"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// resolveRole returns adminRole when the token carries it anywhere, else the flat role.
func (c Claims) resolveRole(adminRole string) string {
	for _, group := range [][]string{c.Roles, c.RealmAccess.Roles} {
		for _, r := range group {
			if r == adminRole {
				return adminRole
			}
		}
	}
	if c.Role != "" {
		return c.Role
	}
	return "USER"
}
