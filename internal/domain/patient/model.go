package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/pkg/patch"
)

type Patient struct {
	ID        uuid.UUID  `json:"id"`
	Matricule string     `json:"matricule"`
	Nom       string     `json:"nom"`
	Prenom    string     `json:"prenom"`
	Telephone string     `json:"telephone"`
	Email     string     `json:"email"`
	Medecin   *uuid.UUID `json:"medecin"`
	CreatedAt time.Time  `json:"created_at"`
}

// Input is the request body of create and update. A nil pointer means the
// key was absent. Medecin also distinguishes an explicit null.
type Input struct {
	Matricule *string             `json:"matricule"`
	Nom       *string             `json:"nom"`
	Prenom    *string             `json:"prenom"`
	Telephone *string             `json:"telephone"`
	Email     *string             `json:"email"`
	Medecin   patch.Field[string] `json:"medecin"`
}

// Filter narrows List. The zero value lists every patient.
type Filter struct {
	// Q matches matricule, nom or prenom, case-insensitively.
	Q       string
	Medecin *uuid.UUID
}

// fields is the validated form of Input. Validation runs on plain strings
// so that required means non-empty.
type fields struct {
	Matricule string `json:"matricule" validate:"required,max=20"`
	Nom       string `json:"nom" validate:"required,max=100"`
	Prenom    string `json:"prenom" validate:"required,max=100"`
	Telephone string `json:"telephone" validate:"max=20"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Medecin   string `json:"medecin" validate:"omitempty,clinicid"`
}

// fieldsOf copies the supplied keys of in and returns their struct field
// names for partial validation.
func fieldsOf(in Input) (fields, []string) {
	var f fields
	var supplied []string
	set := func(dst *string, src *string, name string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			supplied = append(supplied, name)
		}
	}
	set(&f.Matricule, in.Matricule, "Matricule")
	set(&f.Nom, in.Nom, "Nom")
	set(&f.Prenom, in.Prenom, "Prenom")
	set(&f.Telephone, in.Telephone, "Telephone")
	set(&f.Email, in.Email, "Email")
	if in.Medecin.Set {
		if v, ok := in.Medecin.Get(); ok {
			f.Medecin = strings.TrimSpace(v)
		}
		supplied = append(supplied, "Medecin")
	}
	return f, supplied
}

// applyTo writes the named fields of f onto p. Callers pass the full list
// for create and full update.
func (f fields) applyTo(p *Patient, names []string) {
	for _, name := range names {
		switch name {
		case "Matricule":
			p.Matricule = f.Matricule
		case "Nom":
			p.Nom = f.Nom
		case "Prenom":
			p.Prenom = f.Prenom
		case "Telephone":
			p.Telephone = f.Telephone
		case "Email":
			p.Email = f.Email
		case "Medecin":
			p.Medecin = nil
			if f.Medecin != "" {
				id := uuid.MustParse(f.Medecin)
				p.Medecin = &id
			}
		}
	}
}

var allFields = []string{"Matricule", "Nom", "Prenom", "Telephone", "Email", "Medecin"}
