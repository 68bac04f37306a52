package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/validation"
)

// UserLookup checks physician references.
type UserLookup interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Transactor runs fn in a single database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	msgInvalid          = "données invalides"
	msgNotFound         = "patient introuvable"
	msgDuplicate        = "matricule déjà utilisé"
	msgDuplicateField   = "Un patient avec ce matricule existe déjà."
	msgUnknownPhysician = "Médecin introuvable."
)

type Service struct {
	repo     Repository
	users    UserLookup
	tx       Transactor
	validate *validator.Validate
}

func NewService(repo Repository, users UserLookup, tx Transactor) *Service {
	return &Service{repo: repo, users: users, tx: tx, validate: validation.New()}
}

// translate maps repository errors to API errors.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(msgNotFound)
	case errors.Is(err, ErrDuplicateMatricule):
		return apperr.Conflict(msgDuplicate, map[string]string{"matricule": msgDuplicateField})
	case errors.Is(err, ErrUnknownPhysician):
		return apperr.InvalidField("medecin", msgUnknownPhysician)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return fmt.Errorf("%s patient: %w", op, err)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Patient, error) {
	patients, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, translate("list", err)
	}
	return patients, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get", err)
	}
	return p, nil
}

// PatientExists lets the scheduler check patient references.
func (s *Service) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	f, _ := fieldsOf(in)
	if err := s.validate.Struct(&f); err != nil {
		return nil, apperr.Validation(msgInvalid, validation.Fields(err))
	}

	p := &Patient{}
	f.applyTo(p, allFields)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, p, uuid.Nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, translate("create", err)
	}
	return p, nil
}

// Update replaces the patient's mutable fields. With partial set only the
// supplied fields are validated and changed. Without it every required
// field must be present and absent optional fields are cleared.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input, partial bool) (*Patient, error) {
	f, supplied := fieldsOf(in)
	names := allFields
	if partial {
		names = supplied
		if len(supplied) > 0 {
			if err := s.validate.StructPartial(&f, supplied...); err != nil {
				return nil, apperr.Validation(msgInvalid, validation.Fields(err))
			}
		}
	} else if err := s.validate.Struct(&f); err != nil {
		return nil, apperr.Validation(msgInvalid, validation.Fields(err))
	}

	var out *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := *p
		f.applyTo(p, names)

		var check Patient
		if p.Matricule != before.Matricule {
			check.Matricule = p.Matricule
		}
		if touches(names, "Medecin") {
			check.Medecin = p.Medecin
		}
		if err := s.checkReferences(ctx, &check, id); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, translate("update", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	return translate("delete", err)
}

// checkReferences verifies a non-empty matricule is free (ignoring the
// record itself) and a non-nil physician exists. The unique constraint and
// foreign key still reject racing writes.
func (s *Service) checkReferences(ctx context.Context, p *Patient, self uuid.UUID) error {
	if p.Matricule != "" {
		taken, err := s.repo.MatriculeTaken(ctx, p.Matricule, self)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateMatricule
		}
	}
	if p.Medecin != nil {
		ok, err := s.users.UserExists(ctx, *p.Medecin)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownPhysician
		}
	}
	return nil
}

func touches(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
