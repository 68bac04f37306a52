package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/validation"
)

type PatientLookup interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type UserLookup interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Transactor runs fn in a single database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	msgInvalid          = "données invalides"
	msgNotFound         = "rendez-vous introuvable"
	msgSlotTaken        = "créneau déjà réservé"
	msgSlotTakenField   = "Ce médecin a déjà un rendez-vous à cette date et heure."
	msgUnknownPatient   = "Patient introuvable."
	msgUnknownPhysician = "Médecin introuvable."
	msgRequired         = "Ce champ est obligatoire."
)

type Service struct {
	repo     Repository
	patients PatientLookup
	users    UserLookup
	tx       Transactor
	validate *validator.Validate
}

func NewService(repo Repository, patients PatientLookup, users UserLookup, tx Transactor) *Service {
	return &Service{repo: repo, patients: patients, users: users, tx: tx, validate: validation.New()}
}

// translate maps repository errors to API errors. A racing booking that
// passed the existence check but hit the unique constraint gets the same
// conflict as one caught by the check.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(msgNotFound)
	case errors.Is(err, ErrSlotTaken):
		return apperr.Conflict(msgSlotTaken, map[string]string{"heure": msgSlotTakenField})
	case errors.Is(err, ErrUnknownReference):
		var re *ReferenceError
		if errors.As(err, &re) && re.Field == "medecin" {
			return apperr.Validation(msgInvalid, map[string]string{"medecin": msgUnknownPhysician})
		}
		return apperr.Validation(msgInvalid, map[string]string{"patient": msgUnknownPatient})
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return fmt.Errorf("%s appointment: %w", op, err)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	appointments, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, translate("list", err)
	}
	return appointments, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get", err)
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Appointment, error) {
	f, supplied := fieldsOf(in)
	if err := s.validate.Struct(&f); err != nil {
		return nil, apperr.Validation(msgInvalid, validation.Fields(err))
	}

	a := &Appointment{Statut: StatusPlanned}
	f.applyTo(a, supplied)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, a, supplied); err != nil {
			return err
		}
		if err := s.checkSlot(ctx, a.Slot(), uuid.Nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, translate("create", err)
	}
	return a, nil
}

// Update changes an appointment. With partial set only the supplied fields
// are validated and written, and the slot is rechecked only when one of
// medecin, date or heure is among them.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input, partial bool) (*Appointment, error) {
	f, supplied := fieldsOf(in)
	names := supplied
	if partial {
		if len(supplied) > 0 {
			if err := s.validate.StructPartial(&f, supplied...); err != nil {
				return nil, apperr.Validation(msgInvalid, validation.Fields(err))
			}
		}
	} else {
		if err := s.validate.Struct(&f); err != nil {
			return nil, apperr.Validation(msgInvalid, validation.Fields(err))
		}
		names = append([]string(nil), requiredFields...)
		if contains(supplied, "Statut") {
			names = append(names, "Statut")
		}
	}

	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		f.applyTo(a, names)

		if err := s.checkReferences(ctx, a, names); err != nil {
			return err
		}
		if touchesAny(names, slotFields) {
			if err := s.checkSlot(ctx, a.Slot(), a.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, translate("update", err)
	}
	return out, nil
}

// UpdateStatus sets the status of an appointment. Any transition is allowed,
// including to the current status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, statut *string) (*Appointment, error) {
	status, err := parseStatus(statut)
	if err != nil {
		return nil, err
	}
	var out *Appointment
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.SetStatus(ctx, id, status)
		out = a
		return err
	})
	if err != nil {
		return nil, translate("update status", err)
	}
	return out, nil
}

func parseStatus(statut *string) (Status, error) {
	if statut == nil || strings.TrimSpace(*statut) == "" {
		return "", apperr.InvalidField("statut", msgRequired)
	}
	status := Status(strings.TrimSpace(*statut))
	if !status.Valid() {
		return "", apperr.InvalidField("statut", fmt.Sprintf("%q n'est pas un choix valide.", string(status)))
	}
	return status, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	return translate("delete", err)
}

// checkReferences verifies the patient and physician named in names exist.
func (s *Service) checkReferences(ctx context.Context, a *Appointment, names []string) error {
	fields := map[string]string{}
	if contains(names, "Patient") {
		ok, err := s.patients.PatientExists(ctx, a.Patient)
		if err != nil {
			return err
		}
		if !ok {
			fields["patient"] = msgUnknownPatient
		}
	}
	if contains(names, "Medecin") {
		ok, err := s.users.UserExists(ctx, a.Medecin)
		if err != nil {
			return err
		}
		if !ok {
			fields["medecin"] = msgUnknownPhysician
		}
	}
	if len(fields) > 0 {
		return apperr.Validation(msgInvalid, fields)
	}
	return nil
}

// checkSlot runs inside the write transaction. The unique constraint on
// (date, heure, medecin_id) still catches a concurrent booking.
func (s *Service) checkSlot(ctx context.Context, slot Slot, self uuid.UUID) error {
	taken, err := s.repo.SlotTaken(ctx, slot, self)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlotTaken
	}
	return nil
}
