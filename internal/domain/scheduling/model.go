package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/validation"
)

type Status string

const (
	StatusPlanned   Status = "planifie"
	StatusCancelled Status = "annule"
	StatusCompleted Status = "termine"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Appointment is a booking of one physician for one patient at a date and
// time. Date is YYYY-MM-DD and Heure HH:MM:SS.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	Patient   uuid.UUID `json:"patient"`
	Medecin   uuid.UUID `json:"medecin"`
	Date      string    `json:"date"`
	Heure     string    `json:"heure"`
	Statut    Status    `json:"statut"`
	CreatedAt time.Time `json:"created_at"`
}

// Slot identifies the (physician, date, time) triple an appointment occupies.
type Slot struct {
	Medecin uuid.UUID
	Date    string
	Heure   string
}

func (a *Appointment) Slot() Slot {
	return Slot{Medecin: a.Medecin, Date: a.Date, Heure: a.Heure}
}

// Input is the request body of create and update. A nil pointer means the
// key was absent.
type Input struct {
	Patient *string `json:"patient"`
	Medecin *string `json:"medecin"`
	Date    *string `json:"date"`
	Heure   *string `json:"heure"`
	Statut  *string `json:"statut"`
}

// StatusInput is the body of the status endpoints. ID is only read on the
// collection route.
type StatusInput struct {
	ID     *string `json:"id"`
	Statut *string `json:"statut"`
}

type Filter struct {
	Statut  Status
	Date    string
	Medecin *uuid.UUID
	Patient *uuid.UUID
}

type fields struct {
	Patient string `json:"patient" validate:"required,clinicid"`
	Medecin string `json:"medecin" validate:"required,clinicid"`
	Date    string `json:"date" validate:"required,clinicdate"`
	Heure   string `json:"heure" validate:"required,clinictime"`
	Statut  string `json:"statut" validate:"omitempty,oneof=planifie annule termine"`
}

func fieldsOf(in Input) (fields, []string) {
	var f fields
	var supplied []string
	set := func(dst *string, src *string, name string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			supplied = append(supplied, name)
		}
	}
	set(&f.Patient, in.Patient, "Patient")
	set(&f.Medecin, in.Medecin, "Medecin")
	set(&f.Date, in.Date, "Date")
	set(&f.Heure, in.Heure, "Heure")
	set(&f.Statut, in.Statut, "Statut")
	return f, supplied
}

// applyTo writes the named, already validated fields onto a. Date and time
// are stored in their normalised form.
func (f fields) applyTo(a *Appointment, names []string) {
	for _, name := range names {
		switch name {
		case "Patient":
			a.Patient = uuid.MustParse(f.Patient)
		case "Medecin":
			a.Medecin = uuid.MustParse(f.Medecin)
		case "Date":
			a.Date = validation.NormalizeDate(f.Date)
		case "Heure":
			a.Heure = validation.NormalizeTime(f.Heure)
		case "Statut":
			if f.Statut != "" {
				a.Statut = Status(f.Statut)
			}
		}
	}
}

// slotFields are the inputs that move an appointment to another slot.
var slotFields = []string{"Medecin", "Date", "Heure"}

// requiredFields is what a full update replaces. An absent statut keeps the
// current one.
var requiredFields = []string{"Patient", "Medecin", "Date", "Heure"}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func touchesAny(names []string, of []string) bool {
	for _, n := range of {
		if contains(names, n) {
			return true
		}
	}
	return false
}
