package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
)

// User is a staff account. Authentication happens elsewhere; the server
// only maps a token subject to a User and its role memberships.
type User struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"prenom"`
	LastName  string      `json:"nom"`
	Email     string      `json:"email"`
	Roles     []auth.Role `json:"roles"`
	CreatedAt time.Time   `json:"created_at"`
}

func (u *User) HasRole(r auth.Role) bool {
	for _, has := range u.Roles {
		if has == r {
			return true
		}
	}
	return false
}

// Principal projects the user for request authorization.
func (u *User) Principal() *auth.Principal {
	roles := make([]auth.Role, len(u.Roles))
	copy(roles, u.Roles)
	return &auth.Principal{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     roles,
	}
}

// Physician is the public projection of a user holding the Medecin role.
type Physician struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Prenom   string    `json:"prenom"`
	Nom      string    `json:"nom"`
	Email    string    `json:"email"`
}

func physicianOf(u *User) Physician {
	return Physician{
		ID:       u.ID,
		Username: u.Username,
		Prenom:   u.FirstName,
		Nom:      u.LastName,
		Email:    u.Email,
	}
}

// Identity is the response of GET /api/me. Roles is never null.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
}

// NewUser is the input of the user administration command.
type NewUser struct {
	Username  string   `json:"username" validate:"required,max=150"`
	FirstName string   `json:"first_name" validate:"max=150"`
	LastName  string   `json:"last_name" validate:"max=150"`
	Email     string   `json:"email" validate:"omitempty,email,max=254"`
	Roles     []string `json:"roles" validate:"dive,oneof=Administrateur Medecin Secretaire Utilisateur"`
}
