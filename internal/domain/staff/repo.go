package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]*User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	AddRole(ctx context.Context, id uuid.UUID, role auth.Role) error
	RemoveRole(ctx context.Context, id uuid.UUID, role auth.Role) error
}
