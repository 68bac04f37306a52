package scheduling

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
)

func str(s string) *string { return &s }

type fixture struct {
	svc     *Service
	repo    *mockAppointmentRepo
	patient uuid.UUID
	doctor  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{repo: newMockAppointmentRepo(), patient: uuid.New(), doctor: uuid.New()}
	f.svc = NewService(f.repo, newExistsSet(f.patient), newExistsSet(f.doctor), passthroughTx{})
	return f
}

func (f *fixture) input(date, heure string) Input {
	return Input{
		Patient: str(f.patient.String()),
		Medecin: str(f.doctor.String()),
		Date:    str(date),
		Heure:   str(heure),
	}
}

func (f *fixture) book(t *testing.T, date, heure string) *Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.input(date, heure))
	if err != nil {
		t.Fatalf("book %s %s: %v", date, heure, err)
	}
	return a
}

func fieldsOfErr(t *testing.T, err error) map[string]string {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	return ae.Fields
}

func TestService_Create_DefaultsToPlanned(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	if a.Statut != StatusPlanned {
		t.Errorf("expected planifie, got %s", a.Statut)
	}
	if a.Heure != "09:30:00" {
		t.Errorf("expected normalised time, got %q", a.Heure)
	}
	if a.ID == uuid.Nil {
		t.Error("expected an id")
	}
}

func TestService_Create_ExplicitStatus(t *testing.T) {
	f := newFixture()
	in := f.input("2025-03-10", "09:30")
	in.Statut = str("termine")
	a, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Statut != StatusCompleted {
		t.Errorf("expected termine, got %s", a.Statut)
	}
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing patient", Input{Medecin: str(f.doctor.String()), Date: str("2025-03-10"), Heure: str("09:00")}, "patient"},
		{"bad date", f.input("10/03/2025", "09:00"), "date"},
		{"bad time", f.input("2025-03-10", "9h"), "heure"},
		{"bad status", func() Input { in := f.input("2025-03-10", "09:00"); in.Statut = str("done"); return in }(), "statut"},
		{"malformed medecin", Input{Patient: str(f.patient.String()), Medecin: str("x"), Date: str("2025-03-10"), Heure: str("09:00")}, "medecin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.in)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if fieldsOfErr(t, err)[tt.field] == "" {
				t.Errorf("expected %s to be reported, got %v", tt.field, fieldsOfErr(t, err))
			}
		})
	}
	if f.repo.count() != 0 {
		t.Error("invalid input must not be stored")
	}
}

func TestService_Create_UnknownReferences(t *testing.T) {
	f := newFixture()
	in := Input{Patient: str(uuid.NewString()), Medecin: str(uuid.NewString()), Date: str("2025-03-10"), Heure: str("09:00")}
	_, err := f.svc.Create(context.Background(), in)
	fields := fieldsOfErr(t, err)
	if fields["patient"] == "" || fields["medecin"] == "" {
		t.Errorf("expected both references reported, got %v", fields)
	}
}

func TestService_Create_SlotConflict(t *testing.T) {
	f := newFixture()
	f.book(t, "2025-03-10", "09:30")
	_, err := f.svc.Create(context.Background(), f.input("2025-03-10", "09:30:00"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.repo.count() != 1 {
		t.Errorf("conflicting create must leave the store unchanged, got %d rows", f.repo.count())
	}
}

func TestService_Create_CancelledSlotStillBlocks(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, str("annule")); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := f.svc.Create(context.Background(), f.input("2025-03-10", "09:30"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on a cancelled slot, got %v", err)
	}
}

func TestService_Create_OtherPhysicianSameSlot(t *testing.T) {
	f := newFixture()
	other := uuid.New()
	f.svc = NewService(f.repo, newExistsSet(f.patient), newExistsSet(f.doctor, other), passthroughTx{})
	f.book(t, "2025-03-10", "09:30")
	in := f.input("2025-03-10", "09:30")
	in.Medecin = str(other.String())
	if _, err := f.svc.Create(context.Background(), in); err != nil {
		t.Fatalf("a different physician may take the same time: %v", err)
	}
}

// Both requests pass the existence check before either inserts. The
// store's uniqueness rejects the second insert and it must surface as the
// same conflict.
func TestService_Create_ConcurrentSameSlot(t *testing.T) {
	f := newFixture()
	var ready sync.WaitGroup
	ready.Add(2)
	f.repo.beforeCreate = func() {
		ready.Done()
		ready.Wait()
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), f.input("2025-03-10", "10:00"))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("expected one success and one conflict, got %d and %d", ok, conflicts)
	}
	if f.repo.count() != 1 {
		t.Errorf("expected exactly one stored appointment, got %d", f.repo.count())
	}
}

func TestService_PartialUpdate_StatusOnlySkipsSlotCheck(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	checks := f.repo.slotChecks

	got, err := f.svc.Update(context.Background(), a.ID, Input{Statut: str("termine")}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Statut != StatusCompleted || got.Date != "2025-03-10" {
		t.Errorf("unexpected appointment %+v", got)
	}
	if f.repo.slotChecks != checks {
		t.Error("status-only update must not run the slot check")
	}
}

func TestService_PartialUpdate_MoveToTakenSlot(t *testing.T) {
	f := newFixture()
	f.book(t, "2025-03-10", "09:30")
	b := f.book(t, "2025-03-10", "10:30")

	_, err := f.svc.Update(context.Background(), b.ID, Input{Heure: str("09:30")}, true)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, _ := f.repo.GetByID(context.Background(), b.ID)
	if stored.Heure != "10:30:00" {
		t.Errorf("rejected update must not be written, got %q", stored.Heure)
	}
}

func TestService_PartialUpdate_SameSlotExcludesSelf(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	if _, err := f.svc.Update(context.Background(), a.ID, Input{Heure: str("09:30:00")}, true); err != nil {
		t.Fatalf("re-sending its own slot must not conflict: %v", err)
	}
}

func TestService_FullUpdate(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	f.svc.UpdateStatus(context.Background(), a.ID, str("annule"))

	got, err := f.svc.Update(context.Background(), a.ID, f.input("2025-03-11", "11:00"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date != "2025-03-11" || got.Heure != "11:00:00" {
		t.Errorf("unexpected slot %s %s", got.Date, got.Heure)
	}
	if got.Statut != StatusCancelled {
		t.Errorf("absent statut must keep the current one, got %s", got.Statut)
	}
}

func TestService_FullUpdate_RequiresAllFields(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	_, err := f.svc.Update(context.Background(), a.ID, Input{Heure: str("11:00")}, false)
	fields := fieldsOfErr(t, err)
	for _, name := range []string{"patient", "medecin", "date"} {
		if fields[name] == "" {
			t.Errorf("expected %s reported, got %v", name, fields)
		}
	}
}

func TestService_Update_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Update(context.Background(), uuid.New(), Input{Statut: str("annule")}, true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")

	for i := 0; i < 2; i++ {
		got, err := f.svc.UpdateStatus(context.Background(), a.ID, str("annule"))
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if got.Statut != StatusCancelled {
			t.Errorf("expected annule, got %s", got.Statut)
		}
	}
	if got, _ := f.svc.UpdateStatus(context.Background(), a.ID, str("planifie")); got.Statut != StatusPlanned {
		t.Error("any transition must be allowed")
	}
}

func TestService_UpdateStatus_Invalid(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")

	tests := []struct {
		name   string
		statut *string
	}{
		{"missing", nil},
		{"empty", str(" ")},
		{"unknown", str("reporte")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateStatus(context.Background(), a.ID, tt.statut)
			if fieldsOfErr(t, err)["statut"] == "" {
				t.Errorf("expected statut error, got %v", err)
			}
		})
	}
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), str("annule"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-10", "09:30")
	if err := f.svc.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.Delete(context.Background(), a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	f.book(t, "2025-03-10", "09:30")
}

func TestService_List_Filters(t *testing.T) {
	f := newFixture()
	a := f.book(t, "2025-03-11", "09:30")
	f.book(t, "2025-03-10", "09:30")
	f.svc.UpdateStatus(context.Background(), a.ID, str("annule"))

	all, _ := f.svc.List(context.Background(), Filter{})
	if len(all) != 2 || all[0].Date != "2025-03-10" {
		t.Fatalf("expected two appointments ordered by date, got %v", all)
	}
	cancelled, _ := f.svc.List(context.Background(), Filter{Statut: StatusCancelled})
	if len(cancelled) != 1 || cancelled[0].ID != a.ID {
		t.Errorf("unexpected statut filter result %v", cancelled)
	}
	byDate, _ := f.svc.List(context.Background(), Filter{Date: "2025-03-10"})
	if len(byDate) != 1 {
		t.Errorf("unexpected date filter result %v", byDate)
	}
	other := uuid.New()
	none, _ := f.svc.List(context.Background(), Filter{Patient: &other})
	if len(none) != 0 {
		t.Errorf("expected no appointments for an unknown patient, got %v", none)
	}
}

func TestTranslate_RacingInsert(t *testing.T) {
	if err := translate("create", ErrSlotTaken); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := translate("create", ErrUnknownReference); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation, got %v", err)
	}
	plain := errors.New("connection reset")
	if err := translate("create", plain); !errors.Is(err, plain) || apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("expected wrapped internal error, got %v", err)
	}
}

func TestTranslate_ReferenceNamesField(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"rendez_vous_medecin_id_fkey", "medecin"},
		{"rendez_vous_patient_id_fkey", "patient"},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			err := translate("create", classify(&pgconn.PgError{Code: "23503", ConstraintName: tt.constraint}))
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation, got %v", err)
			}
			fields := fieldsOfErr(t, err)
			if len(fields) != 1 || fields[tt.field] == "" {
				t.Errorf("expected only %s to be reported, got %v", tt.field, fields)
			}
		})
	}
}

func TestService_Create_UppercaseIDs(t *testing.T) {
	f := newFixture()
	in := f.input("2025-03-10", "09:30")
	in.Patient = str(strings.ToUpper(f.patient.String()))
	in.Medecin = str(strings.ToUpper(f.doctor.String()))
	a, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("uppercase ids must be accepted like path ids: %v", err)
	}
	if a.Patient != f.patient || a.Medecin != f.doctor {
		t.Errorf("unexpected references %s / %s", a.Patient, a.Medecin)
	}
}
