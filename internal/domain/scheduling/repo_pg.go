package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/db"
)

const (
	slotConstraint    = "rendez_vous_slot_key"
	medecinConstraint = "rendez_vous_medecin_id_fkey"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &appointmentRepoPG{pool: pool} }

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const appointmentCols = `id, patient_id, medecin_id, to_char(date, 'YYYY-MM-DD'), to_char(heure, 'HH24:MI:SS'), statut, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.Patient, &a.Medecin, &a.Date, &a.Heure, &a.Statut, &a.CreatedAt)
	return &a, err
}

func classify(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == slotConstraint {
		return ErrSlotTaken
	}
	if name, ok := db.ForeignKeyViolation(err); ok {
		if name == medecinConstraint {
			return &ReferenceError{Field: "medecin"}
		}
		return &ReferenceError{Field: "patient"}
	}
	return err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO rendez_vous (id, patient_id, medecin_id, date, heure, statut)
		VALUES ($1, $2, $3, $4::text::date, $5::text::time, $6)
		RETURNING created_at`,
		a.ID, a.Patient, a.Medecin, a.Date, a.Heure, a.Statut).Scan(&a.CreatedAt)
	return classify(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM rendez_vous WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE rendez_vous
		SET patient_id = $2, medecin_id = $3, date = $4::text::date, heure = $5::text::time, statut = $6
		WHERE id = $1`,
		a.ID, a.Patient, a.Medecin, a.Date, a.Heure, a.Statut)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM rendez_vous WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *appointmentRepoPG) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM rendez_vous
		WHERE ($1::text IS NULL OR statut = $1::text)
		  AND ($2::text IS NULL OR date = $2::text::date)
		  AND ($3::uuid IS NULL OR medecin_id = $3::uuid)
		  AND ($4::uuid IS NULL OR patient_id = $4::uuid)
		ORDER BY date, heure, id`,
		nullable(string(f.Statut)), nullable(f.Date), f.Medecin, f.Patient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func (r *appointmentRepoPG) SlotTaken(ctx context.Context, s Slot, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rendez_vous
			WHERE medecin_id = $1 AND date = $2::text::date AND heure = $3::text::time AND id <> $4
		)`,
		s.Medecin, s.Date, s.Heure, exclude).Scan(&taken)
	return taken, err
}

// SetStatus changes the status in a single statement and returns the
// updated row.
func (r *appointmentRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE rendez_vous SET statut = $2 WHERE id = $1
		RETURNING `+appointmentCols, id, status))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
