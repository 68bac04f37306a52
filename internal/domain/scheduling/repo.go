package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("appointment not found")
	ErrSlotTaken        = errors.New("slot already booked")
	ErrUnknownReference = errors.New("referenced patient or physician does not exist")
)

// ReferenceError names the input field whose referenced row does not exist.
// It matches ErrUnknownReference.
type ReferenceError struct {
	Field string
}

func (e *ReferenceError) Error() string { return "referenced " + e.Field + " does not exist" }

func (e *ReferenceError) Is(target error) bool { return target == ErrUnknownReference }

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*Appointment, error)
	// SlotTaken reports whether another appointment than exclude holds s,
	// whatever its status.
	SlotTaken(ctx context.Context, s Slot, exclude uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
}
