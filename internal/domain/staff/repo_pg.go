package staff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/db"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userSelect = `
	SELECT u.id, u.username, u.first_name, u.last_name, u.email, u.created_at,
		COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
	FROM app_user u
	LEFT JOIN user_role r ON r.user_id = u.id`

const userGroup = ` GROUP BY u.id`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var roles []string
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.CreatedAt, &roles); err != nil {
		return nil, err
	}
	u.Roles = make([]auth.Role, 0, len(roles))
	for _, name := range roles {
		u.Roles = append(u.Roles, auth.Role(name))
	}
	return &u, nil
}

func (r *userRepoPG) one(ctx context.Context, where string, arg any) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, userSelect+` WHERE `+where+userGroup, arg))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *userRepoPG) many(ctx context.Context, query string, args ...any) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO app_user (id, username, first_name, last_name, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email).Scan(&u.CreatedAt)
	if name, ok := db.UniqueViolation(err); ok && name == "app_user_username_key" {
		return ErrDuplicateUsername
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.one(ctx, `u.id = $1`, id)
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.one(ctx, `u.username = $1`, username)
}

func (r *userRepoPG) List(ctx context.Context) ([]*User, error) {
	return r.many(ctx, userSelect+userGroup+` ORDER BY u.username`)
}

func (r *userRepoPG) ListByRole(ctx context.Context, role auth.Role) ([]*User, error) {
	return r.many(ctx, userSelect+`
		WHERE EXISTS (SELECT 1 FROM user_role m WHERE m.user_id = u.id AND m.role = $1)`+
		userGroup+` ORDER BY u.last_name, u.first_name, u.username`, string(role))
}

func (r *userRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM app_user WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *userRepoPG) AddRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO user_role (user_id, role) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, id, string(role))
	if _, ok := db.ForeignKeyViolation(err); ok {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("add role %s: %w", role, err)
	}
	return nil
}

func (r *userRepoPG) RemoveRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM user_role WHERE user_id = $1 AND role = $2`, id, string(role))
	return err
}
