package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type existsSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]bool
}

func newExistsSet(ids ...uuid.UUID) *existsSet {
	s := &existsSet{ids: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *existsSet) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id], nil
}

func (s *existsSet) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.PatientExists(ctx, id)
}

// mockAppointmentRepo enforces slot uniqueness in Create and Update the
// way the rendez_vous_slot_key constraint does.
type mockAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
	slotChecks   int
	// beforeCreate, when set, runs after the slot check and before the
	// insert, outside the lock.
	beforeCreate func()
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) slotTaken(s Slot, exclude uuid.UUID) bool {
	for id, a := range m.appointments {
		if id != exclude && a.Slot() == s {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken(a.Slot(), uuid.Nil) {
		return ErrSlotTaken
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	c := *a
	m.appointments[a.ID] = &c
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrNotFound
	}
	if m.slotTaken(a.Slot(), a.ID) {
		return ErrSlotTaken
	}
	c := *a
	m.appointments[a.ID] = &c
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f Filter) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Appointment{}
	for _, a := range m.appointments {
		switch {
		case f.Statut != "" && a.Statut != f.Statut:
			continue
		case f.Date != "" && a.Date != f.Date:
			continue
		case f.Medecin != nil && a.Medecin != *f.Medecin:
			continue
		case f.Patient != nil && a.Patient != *f.Patient:
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Heure < out[j].Heure
	})
	return out, nil
}

func (m *mockAppointmentRepo) SlotTaken(_ context.Context, s Slot, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slotChecks++
	return m.slotTaken(s, exclude), nil
}

func (m *mockAppointmentRepo) SetStatus(_ context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Statut = status
	c := *a
	return &c, nil
}

func (m *mockAppointmentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appointments)
}
