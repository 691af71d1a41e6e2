package visit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic/internal/platform/db"
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

const visitCols = `id, patient_id, visit_date, symptoms, diagnosis, conclusion, notes, created_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visits (patient_id, visit_date, symptoms, diagnosis, conclusion, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		v.PatientID, v.VisitDate, v.Symptoms, v.Diagnosis, v.Conclusion, v.Notes,
	).Scan(&v.ID, &v.CreatedAt)
	return db.MapError(err, "visit for patient", v.PatientID)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visits WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "visit", id)
	}
	return v, nil
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visits SET visit_date=$2, symptoms=$3, diagnosis=$4, conclusion=$5, notes=$6
		WHERE id = $1`,
		v.ID, v.VisitDate, v.Symptoms, v.Diagnosis, v.Conclusion, v.Notes,
	)
	if err != nil {
		return db.MapError(err, "visit", v.ID)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows, "visit", v.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "visit", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*Visit, error) {
	return r.list(ctx, `SELECT `+visitCols+` FROM visits WHERE patient_id = $1
		ORDER BY visit_date DESC, id DESC LIMIT $2`, patientID, limit)
}

func (r *repoPG) Recent(ctx context.Context, limit int) ([]*Visit, error) {
	return r.list(ctx, `SELECT `+visitCols+` FROM visits
		ORDER BY visit_date DESC, id DESC LIMIT $1`, limit)
}

func (r *repoPG) ListByDateRange(ctx context.Context, from, to time.Time) ([]*Visit, error) {
	return r.list(ctx, `SELECT `+visitCols+` FROM visits
		WHERE visit_date >= $1 AND visit_date <= $2
		ORDER BY visit_date DESC, id DESC`, from, to)
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visits`).Scan(&n)
	return n, err
}

func (r *repoPG) CountOn(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visits WHERE visit_date = $1`, day).Scan(&n)
	return n, err
}

func (r *repoPG) FindByPatientAndDate(ctx context.Context, patientID int64, day time.Time) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visits
		WHERE patient_id = $1 AND visit_date = $2
		ORDER BY id LIMIT 1`, patientID, day))
	if err != nil {
		return nil, db.MapError(err, "visit on "+day.Format("2006-01-02")+" for patient", patientID)
	}
	return v, nil
}

func (r *repoPG) LastForPatient(ctx context.Context, patientID int64) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visits
		WHERE patient_id = $1 ORDER BY visit_date DESC, id DESC LIMIT 1`, patientID))
	if err != nil {
		return nil, db.MapError(err, "visit for patient", patientID)
	}
	return v, nil
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Visit, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.Symptoms, &v.Diagnosis, &v.Conclusion, &v.Notes, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
