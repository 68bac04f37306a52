package auth

import "fmt"

// Role is a named membership. Roles are non-exclusive and carry no
// hierarchy: Administrateur does not imply Medecin.
type Role string

const (
	RoleAdministrator Role = "Administrateur"
	RolePhysician     Role = "Medecin"
	RoleSecretary     Role = "Secretaire"
	RoleUser          Role = "Utilisateur"
)

var knownRoles = map[Role]bool{
	RoleAdministrator: true,
	RolePhysician:     true,
	RoleSecretary:     true,
	RoleUser:          true,
}

// Roles returns every known role in a stable order.
func Roles() []Role {
	return []Role{RoleAdministrator, RolePhysician, RoleSecretary, RoleUser}
}

// ParseRole accepts the exact role names stored in user_role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !knownRoles[r] {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// writerRoles may mutate patients and appointments.
var writerRoles = []Role{RoleAdministrator, RoleSecretary}

// HasAnyRole reports whether p holds at least one of roles. A nil principal
// holds nothing.
func HasAnyRole(p *Principal, roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, want := range roles {
		for _, has := range p.Roles {
			if has == want {
				return true
			}
		}
	}
	return false
}

// CanRead is true for any authenticated principal, even with no roles.
func CanRead(p *Principal) bool {
	return p != nil
}

// CanWrite is true iff p holds Administrateur or Secretaire.
func CanWrite(p *Principal) bool {
	return HasAnyRole(p, writerRoles...)
}
