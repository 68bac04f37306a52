package staff

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
)

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func clone(u *User) *User {
	c := *u
	c.Roles = append([]auth.Role{}, u.Roles...)
	return &c
}

func (m *mockUserRepo) add(username string, roles ...auth.Role) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &User{ID: uuid.New(), Username: username, FirstName: "P" + username, LastName: "N" + username,
		Email: username + "@clinique.test", Roles: roles, CreatedAt: time.Now()}
	if u.Roles == nil {
		u.Roles = []auth.Role{}
	}
	m.users[u.ID] = u
	return clone(u)
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	stored := clone(u)
	stored.Roles = []auth.Role{}
	m.users[u.ID] = stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) List(_ context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*User{}
	for _, u := range m.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *mockUserRepo) ListByRole(ctx context.Context, role auth.Role) ([]*User, error) {
	all, _ := m.List(ctx)
	out := []*User{}
	for _, u := range all {
		if u.HasRole(role) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *mockUserRepo) AddRole(_ context.Context, id uuid.UUID, role auth.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (m *mockUserRepo) RemoveRole(_ context.Context, id uuid.UUID, role auth.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	kept := []auth.Role{}
	for _, r := range u.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	u.Roles = kept
	return nil
}
