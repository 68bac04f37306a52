package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/validation"
)

// Transactor runs fn in a single database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	users    Repository
	tx       Transactor
	validate *validator.Validate
}

func NewService(users Repository, tx Transactor) *Service {
	return &Service{users: users, tx: tx, validate: validation.New()}
}

// ResolvePrincipal implements auth.PrincipalResolver. The token subject is
// the user id.
func (s *Service) ResolvePrincipal(ctx context.Context, subject string) (*auth.Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, auth.ErrUnknownPrincipal
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrUnknownPrincipal
	}
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	return u.Principal(), nil
}

// UserExists reports whether id names a stored user. Patients and
// appointments use it to check physician references.
func (s *Service) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.users.Exists(ctx, id)
}

// ListPhysicians returns every user holding Medecin, or an empty slice.
func (s *Service) ListPhysicians(ctx context.Context) ([]Physician, error) {
	users, err := s.users.ListByRole(ctx, auth.RolePhysician)
	if err != nil {
		return nil, fmt.Errorf("list physicians: %w", err)
	}
	out := make([]Physician, 0, len(users))
	for _, u := range users {
		out = append(out, physicianOf(u))
	}
	return out, nil
}

// WhoAmI describes the calling principal.
func (s *Service) WhoAmI(p *auth.Principal) Identity {
	return Identity{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Roles:    p.RoleNames(),
	}
}

// -- Administration --

func (s *Service) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(&in); err != nil {
		return nil, apperr.Validation("données invalides", validation.Fields(err))
	}
	if strings.ContainsAny(in.Username, " \t\n") {
		return nil, apperr.InvalidField("username", "Le nom d'utilisateur ne peut pas contenir d'espace.")
	}

	u := &User{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		for _, name := range in.Roles {
			role := auth.Role(name)
			if u.HasRole(role) {
				continue
			}
			if err := s.users.AddRole(ctx, u.ID, role); err != nil {
				return err
			}
			u.Roles = append(u.Roles, role)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicateUsername) {
		return nil, apperr.Conflict("nom d'utilisateur déjà utilisé", map[string]string{
			"username": "Un utilisateur avec ce nom existe déjà.",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if u.Roles == nil {
		u.Roles = []auth.Role{}
	}
	return u, nil
}

func (s *Service) userByName(ctx context.Context, username string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("utilisateur %q introuvable", username))
	}
	return u, err
}

func (s *Service) GrantRole(ctx context.Context, username string, role auth.Role) (*User, error) {
	var out *User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		u, err := s.userByName(ctx, username)
		if err != nil {
			return err
		}
		if err := s.users.AddRole(ctx, u.ID, role); err != nil {
			return err
		}
		out, err = s.users.GetByID(ctx, u.ID)
		return err
	})
	return out, err
}

func (s *Service) RevokeRole(ctx context.Context, username string, role auth.Role) (*User, error) {
	var out *User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		u, err := s.userByName(ctx, username)
		if err != nil {
			return err
		}
		if err := s.users.RemoveRole(ctx, u.ID, role); err != nil {
			return err
		}
		out, err = s.users.GetByID(ctx, u.ID)
		return err
	})
	return out, err
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.userByName(ctx, username)
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}
