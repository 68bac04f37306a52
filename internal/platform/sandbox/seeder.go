// Package sandbox fills a clinic database with reproducible demo data. Every
// record goes through the domain services, so seeded data obeys the same
// validation, uniqueness and slot rules as data entered through the API.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/patient"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/scheduling"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/domain/staff"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
	"github.com/Alkashi1618/projet8-clinique-securisee/pkg/patch"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	Physicians             int
	Secretaries            int
	Patients               int
	AppointmentsPerPatient int
	// StartDate is the first consultation day, YYYY-MM-DD. Empty means the
	// next Monday after today.
	StartDate string
	Days      int
	Seed      int64
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Physicians:             3,
		Secretaries:            1,
		Patients:               20,
		AppointmentsPerPatient: 2,
		Days:                   10,
		Seed:                   1,
	}
}

func (c SeedConfig) Validate() error {
	if c.Physicians < 1 {
		return errors.New("at least one physician is required")
	}
	if c.Patients < 0 || c.Secretaries < 0 || c.AppointmentsPerPatient < 0 {
		return errors.New("counts must not be negative")
	}
	if c.Days < 1 {
		return errors.New("days must be at least 1")
	}
	if c.StartDate != "" {
		if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
			return fmt.Errorf("invalid start date %q: %w", c.StartDate, err)
		}
	}
	return nil
}

// SeedResult counts what was written. Skipped records already existed or
// could not find a free slot.
type SeedResult struct {
	Users        int           `json:"users"`
	Patients     int           `json:"patients"`
	Appointments int           `json:"appointments"`
	Skipped      int           `json:"skipped"`
	Duration     time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

var (
	firstNames = []string{
		"Aminata", "Moussa", "Fatou", "Ibrahima", "Awa", "Cheikh", "Mariama", "Ousmane",
		"Claire", "Julien", "Camille", "Thomas", "Sophie", "Nicolas", "Léa", "Antoine",
		"Khadija", "Youssef", "Inès", "Mehdi",
	}
	lastNames = []string{
		"Diop", "Ndiaye", "Fall", "Sow", "Ba", "Diallo", "Faye", "Gueye",
		"Martin", "Bernard", "Dubois", "Durand", "Lefebvre", "Moreau", "Laurent", "Girard",
		"Benali", "Haddad", "Traoré", "Koné",
	}
	// Half-hour consultation slots.
	slotTimes = []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	}
)

// slotAttempts bounds the retries of one appointment before it is skipped.
const slotAttempts = 8

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic demo records. Two generators with the
// same seed produce the same sequence.
type DataGenerator struct {
	rng     *rand.Rand
	counter int
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) phone() string {
	return fmt.Sprintf("0%d %02d %02d %02d %02d", 6+g.rng.Intn(2),
		g.rng.Intn(100), g.rng.Intn(100), g.rng.Intn(100), g.rng.Intn(100))
}

// email builds an ASCII address from a name.
func email(prenom, nom, domain string) string {
	r := strings.NewReplacer("é", "e", "è", "e", "ë", "e", "ï", "i", "ô", "o", " ", "")
	return strings.ToLower(r.Replace(prenom) + "." + r.Replace(nom) + "@" + domain)
}

// GenerateStaff returns a staff account with the given role. Usernames are
// stable across runs so that seeding twice reuses the same accounts.
func (g *DataGenerator) GenerateStaff(role auth.Role, n int) staff.NewUser {
	prenom, nom := g.pick(firstNames), g.pick(lastNames)
	return staff.NewUser{
		Username:  fmt.Sprintf("demo.%s%d", strings.ToLower(string(role)), n),
		FirstName: prenom,
		LastName:  nom,
		Email:     email(prenom, nom, "clinique.test"),
		Roles:     []string{string(role)},
	}
}

// GeneratePatient returns a patient input. Roughly one patient in four has
// no attending physician.
func (g *DataGenerator) GeneratePatient(physicians []*staff.User) patient.Input {
	g.counter++
	prenom, nom := g.pick(firstNames), g.pick(lastNames)
	matricule := fmt.Sprintf("DEMO-%05d", g.counter)
	tel := g.phone()
	mail := email(prenom, nom, "patient.test")

	in := patient.Input{
		Matricule: &matricule,
		Nom:       &nom,
		Prenom:    &prenom,
		Telephone: &tel,
		Email:     &mail,
	}
	if len(physicians) > 0 && g.rng.Intn(4) != 0 {
		in.Medecin = patch.Of(physicians[g.rng.Intn(len(physicians))].ID.String())
	}
	return in
}

// GenerateAppointment returns an appointment input on a random slot within
// days consultation days from start, weekends excluded.
func (g *DataGenerator) GenerateAppointment(p *patient.Patient, physicians []*staff.User, start time.Time, days int) scheduling.Input {
	medecin := physicians[g.rng.Intn(len(physicians))].ID
	if p.Medecin != nil && g.rng.Intn(3) != 0 {
		medecin = *p.Medecin
	}
	date := workday(start, g.rng.Intn(days)).Format("2006-01-02")
	heure := g.pick(slotTimes)

	statut := string(scheduling.StatusPlanned)
	switch n := g.rng.Intn(10); {
	case n == 0:
		statut = string(scheduling.StatusCancelled)
	case n < 3:
		statut = string(scheduling.StatusCompleted)
	}

	patientID, medecinID := p.ID.String(), medecin.String()
	return scheduling.Input{
		Patient: &patientID,
		Medecin: &medecinID,
		Date:    &date,
		Heure:   &heure,
		Statut:  &statut,
	}
}

// workday returns the n-th weekday counting from start, start included.
func workday(start time.Time, n int) time.Time {
	d := start
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			n--
		}
	}
	return d
}

func nextMonday(now time.Time) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

type StaffService interface {
	CreateUser(ctx context.Context, in staff.NewUser) (*staff.User, error)
	GetUserByUsername(ctx context.Context, username string) (*staff.User, error)
}

type PatientService interface {
	Create(ctx context.Context, in patient.Input) (*patient.Patient, error)
}

type AppointmentService interface {
	Create(ctx context.Context, in scheduling.Input) (*scheduling.Appointment, error)
}

// Seeder writes generated records through the domain services.
type Seeder struct {
	staff        StaffService
	patients     PatientService
	appointments AppointmentService
	logger       zerolog.Logger
	now          func() time.Time
}

func NewSeeder(st StaffService, patients PatientService, appointments AppointmentService, logger zerolog.Logger) *Seeder {
	return &Seeder{
		staff:        st,
		patients:     patients,
		appointments: appointments,
		logger:       logger,
		now:          time.Now,
	}
}

// Seed creates staff, patients and appointments according to cfg. It can be
// run repeatedly: existing accounts are reused and existing matricules or
// taken slots are skipped.
func (s *Seeder) Seed(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	started := s.now()
	gen := NewDataGenerator(cfg.Seed)
	result := &SeedResult{}

	start := nextMonday(started)
	if cfg.StartDate != "" {
		start, _ = time.Parse("2006-01-02", cfg.StartDate)
	}

	physicians := make([]*staff.User, 0, cfg.Physicians)
	for i := 1; i <= cfg.Physicians; i++ {
		u, err := s.ensureUser(ctx, gen.GenerateStaff(auth.RolePhysician, i), result)
		if err != nil {
			return result, err
		}
		physicians = append(physicians, u)
	}
	for i := 1; i <= cfg.Secretaries; i++ {
		if _, err := s.ensureUser(ctx, gen.GenerateStaff(auth.RoleSecretary, i), result); err != nil {
			return result, err
		}
	}

	for i := 0; i < cfg.Patients; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		in := gen.GeneratePatient(physicians)
		p, err := s.patients.Create(ctx, in)
		if errors.Is(err, apperr.ErrConflict) {
			s.logger.Debug().Str("matricule", *in.Matricule).Msg("patient already seeded")
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("seed patient %s: %w", *in.Matricule, err)
		}
		result.Patients++

		for j := 0; j < cfg.AppointmentsPerPatient; j++ {
			booked, err := s.book(ctx, gen, p, physicians, start, cfg.Days)
			if err != nil {
				return result, err
			}
			if booked {
				result.Appointments++
			} else {
				result.Skipped++
			}
		}
	}

	result.Duration = s.now().Sub(started)
	s.logger.Info().
		Int("users", result.Users).
		Int("patients", result.Patients).
		Int("appointments", result.Appointments).
		Int("skipped", result.Skipped).
		Msg("demo data seeded")
	return result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, in staff.NewUser, result *SeedResult) (*staff.User, error) {
	u, err := s.staff.CreateUser(ctx, in)
	if errors.Is(err, apperr.ErrConflict) {
		result.Skipped++
		return s.staff.GetUserByUsername(ctx, in.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("seed user %s: %w", in.Username, err)
	}
	result.Users++
	return u, nil
}

// book tries a few random slots and reports whether one was free.
func (s *Seeder) book(ctx context.Context, gen *DataGenerator, p *patient.Patient, physicians []*staff.User, start time.Time, days int) (bool, error) {
	for attempt := 0; attempt < slotAttempts; attempt++ {
		in := gen.GenerateAppointment(p, physicians, start, days)
		_, err := s.appointments.Create(ctx, in)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return false, fmt.Errorf("seed appointment for %s: %w", p.Matricule, err)
		}
	}
	s.logger.Debug().Str("matricule", p.Matricule).Msg("no free slot found")
	return false, nil
}
