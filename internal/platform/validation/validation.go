// Package validation configures the struct validator shared by the domain
// services and converts its failures into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var timeLayouts = []string{TimeLayout, "15:04"}

// New returns a validator that reports fields by their json name and knows
// the clinic-specific tags clinicdate, clinictime and clinicid. clinicid
// accepts exactly what uuid.Parse accepts, so a body id and a path id follow
// the same rules.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("clinicdate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clinictime", func(fl validator.FieldLevel) bool {
		_, err := ParseTime(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clinicid", func(fl validator.FieldLevel) bool {
		_, err := uuid.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseTime accepts HH:MM and HH:MM:SS.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// NormalizeDate returns s in YYYY-MM-DD form. s must already be valid.
func NormalizeDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format(DateLayout)
}

// NormalizeTime returns s in HH:MM:SS form. s must already be valid.
func NormalizeTime(s string) string {
	t, err := ParseTime(s)
	if err != nil {
		return s
	}
	return t.Format(TimeLayout)
}

// Fields converts a validator error into a field → message map. It returns
// nil when err is not a validation failure.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Ce champ est obligatoire."
	case "max":
		return fmt.Sprintf("Assurez-vous que ce champ comporte au plus %s caractères.", fe.Param())
	case "email":
		return "Saisissez une adresse e-mail valide."
	case "clinicid":
		return "Identifiant invalide."
	case "oneof":
		return fmt.Sprintf("%q n'est pas un choix valide.", fmt.Sprint(fe.Value()))
	case "clinicdate":
		return "Format de date invalide. Utilisez AAAA-MM-JJ."
	case "clinictime":
		return "Format d'heure invalide. Utilisez HH:MM ou HH:MM:SS."
	default:
		return "Valeur invalide."
	}
}
