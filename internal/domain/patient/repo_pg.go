package patient

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/pkg/pagination"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_code, full_name, date_of_birth, gender, phone_number,
	address, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (patient_code, full_name, date_of_birth, gender, phone_number, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.PatientCode, p.FullName, p.DateOfBirth, p.Gender, p.PhoneNumber, p.Address, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "patient", p.PatientCode)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "patient", id)
	}
	return p, nil
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE patient_code = $1`, code))
	if err != nil {
		return nil, db.MapError(err, "patient", code)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			full_name=$2, date_of_birth=$3, gender=$4, phone_number=$5, address=$6, notes=$7,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.DateOfBirth, p.Gender, p.PhoneNumber, p.Address, p.Notes,
	).Scan(&p.UpdatedAt)
	return db.MapError(err, "patient", p.ID)
}

func (r *repoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "patient", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) List(ctx context.Context, page pagination.Params) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	patients, err := collectPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *repoPG) Search(ctx context.Context, keyword string, limit int) ([]*Patient, error) {
	if keyword == "" {
		rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients
			ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
		if err != nil {
			return nil, err
		}
		return collectPatients(rows)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients
		WHERE full_name LIKE $1 OR phone_number LIKE $1 OR patient_code LIKE $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, db.ContainsPattern(keyword), limit)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n)
	return n, err
}

func (r *repoPG) LatestCode(ctx context.Context) (string, error) {
	var code string
	err := r.conn(ctx).QueryRow(ctx, `SELECT patient_code FROM patients ORDER BY id DESC LIMIT 1`).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return code, err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PatientCode, &p.FullName, &p.DateOfBirth, &p.Gender, &p.PhoneNumber,
		&p.Address, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
