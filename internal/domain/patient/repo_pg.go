package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/db"
)

const matriculeConstraint = "patient_matricule_key"

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, matricule, nom, prenom, telephone, email, medecin_id, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Matricule, &p.Nom, &p.Prenom, &p.Telephone, &p.Email, &p.Medecin, &p.CreatedAt)
	return &p, err
}

// classify maps constraint violations to the repository sentinels.
func classify(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == matriculeConstraint {
		return ErrDuplicateMatricule
	}
	if _, ok := db.ForeignKeyViolation(err); ok {
		return ErrUnknownPhysician
	}
	return err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, matricule, nom, prenom, telephone, email, medecin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.Matricule, p.Nom, p.Prenom, p.Telephone, p.Email, p.Medecin).Scan(&p.CreatedAt)
	return classify(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET matricule = $2, nom = $3, prenom = $4, telephone = $5, email = $6, medecin_id = $7
		WHERE id = $1`,
		p.ID, p.Matricule, p.Nom, p.Prenom, p.Telephone, p.Email, p.Medecin)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the patient. Its appointments go with it through the
// ON DELETE CASCADE foreign key.
func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *patientRepoPG) List(ctx context.Context, f Filter) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patient
		WHERE ($1::text = '' OR matricule ILIKE '%' || $1::text || '%'
			OR nom ILIKE '%' || $1::text || '%' OR prenom ILIKE '%' || $1::text || '%')
		  AND ($2::uuid IS NULL OR medecin_id = $2::uuid)
		ORDER BY created_at, id`,
		likeEscaper.Replace(strings.TrimSpace(f.Q)), f.Medecin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) MatriculeTaken(ctx context.Context, matricule string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE matricule = $1 AND id <> $2)`,
		matricule, exclude).Scan(&taken)
	return taken, err
}

func (r *patientRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}
