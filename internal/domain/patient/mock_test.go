package patient

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockUsers struct {
	ids map[uuid.UUID]bool
}

func (m *mockUsers) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.ids[id], nil
}

// mockPatientRepo enforces the matricule uniqueness the database would.
type mockPatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func clonePatient(p *Patient) *Patient {
	c := *p
	if p.Medecin != nil {
		id := *p.Medecin
		c.Medecin = &id
	}
	return &c
}

func (m *mockPatientRepo) taken(matricule string, exclude uuid.UUID) bool {
	for id, p := range m.patients {
		if id != exclude && p.Matricule == matricule {
			return true
		}
	}
	return false
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(p.Matricule, uuid.Nil) {
		return ErrDuplicateMatricule
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.patients[p.ID] = clonePatient(p)
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePatient(p), nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	if m.taken(p.Matricule, p.ID) {
		return ErrDuplicateMatricule
	}
	m.patients[p.ID] = clonePatient(p)
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, f Filter) ([]*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(f.Q)
	out := []*Patient{}
	for _, p := range m.patients {
		if f.Medecin != nil && (p.Medecin == nil || *p.Medecin != *f.Medecin) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Matricule+" "+p.Nom+" "+p.Prenom), q) {
			continue
		}
		out = append(out, clonePatient(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Matricule < out[j].Matricule })
	return out, nil
}

func (m *mockPatientRepo) MatriculeTaken(_ context.Context, matricule string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taken(matricule, exclude), nil
}

func (m *mockPatientRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.patients[id]
	return ok, nil
}
