package medication

import (
	"context"

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

func connFor(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Medicine Repository --

type medicineRepoPG struct {
	pool *pgxpool.Pool
}

func NewMedicineRepo(pool *pgxpool.Pool) MedicineRepository {
	return &medicineRepoPG{pool: pool}
}

func (r *medicineRepoPG) conn(ctx context.Context) querier {
	return connFor(ctx, r.pool)
}

const medicineCols = `id, name, category, unit, description, active, created_at`

func (r *medicineRepoPG) Create(ctx context.Context, m *Medicine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medicines (name, category, unit, description, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		m.Name, m.Category, m.Unit, m.Description, m.Active,
	).Scan(&m.ID, &m.CreatedAt)
	return db.MapError(err, "medicine", m.Name)
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id int64) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "medicine", id)
	}
	return m, nil
}

func (r *medicineRepoPG) GetByName(ctx context.Context, name string) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines
		WHERE name = $1 ORDER BY active DESC, id LIMIT 1`, name))
	if err != nil {
		return nil, db.MapError(err, "medicine", name)
	}
	return m, nil
}

func (r *medicineRepoPG) FindActiveByName(ctx context.Context, name string) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines
		WHERE active AND LOWER(name) = LOWER(TRIM($1)) ORDER BY id LIMIT 1`, name))
	if err != nil {
		return nil, db.MapError(err, "active medicine", name)
	}
	return m, nil
}

func (r *medicineRepoPG) Update(ctx context.Context, m *Medicine) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicines SET name=$2, category=$3, unit=$4, description=$5, active=$6
		WHERE id = $1`,
		m.ID, m.Name, m.Category, m.Unit, m.Description, m.Active,
	)
	if err != nil {
		return db.MapError(err, "medicine", m.ID)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows, "medicine", m.ID)
	}
	return nil
}

func (r *medicineRepoPG) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE medicines SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return false, db.MapError(err, "medicine", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *medicineRepoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "medicine", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *medicineRepoPG) List(ctx context.Context, activeOnly bool) ([]*Medicine, error) {
	return r.list(ctx, `SELECT `+medicineCols+` FROM medicines
		WHERE ($1 = FALSE OR active)
		ORDER BY category NULLS FIRST, name`, activeOnly)
}

func (r *medicineRepoPG) ListByCategory(ctx context.Context, category string, activeOnly bool) ([]*Medicine, error) {
	return r.list(ctx, `SELECT `+medicineCols+` FROM medicines
		WHERE category = $1 AND ($2 = FALSE OR active)
		ORDER BY name`, category, activeOnly)
}

func (r *medicineRepoPG) Search(ctx context.Context, keyword string, activeOnly bool) ([]*Medicine, error) {
	return r.list(ctx, `SELECT `+medicineCols+` FROM medicines
		WHERE name LIKE $1 AND ($2 = FALSE OR active)
		ORDER BY name`, db.ContainsPattern(keyword), activeOnly)
}

func (r *medicineRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicines []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.Description, &m.Active, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// -- Prescription Repository --

type prescriptionRepoPG struct {
	pool *pgxpool.Pool
}

func NewPrescriptionRepo(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) querier {
	return connFor(ctx, r.pool)
}

const prescriptionCols = `id, visit_id, medicine_id, dosage, frequency, duration_days, notes, created_at`

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (visit_id, medicine_id, dosage, frequency, duration_days, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.VisitID, p.MedicineID, p.Dosage, p.Frequency, p.DurationDays, p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
	return db.MapError(err, "prescription for visit", p.VisitID)
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "prescription", id)
	}
	return p, nil
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescriptions SET medicine_id=$2, dosage=$3, frequency=$4, duration_days=$5, notes=$6
		WHERE id = $1`,
		p.ID, p.MedicineID, p.Dosage, p.Frequency, p.DurationDays, p.Notes,
	)
	if err != nil {
		return db.MapError(err, "prescription", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows, "prescription", p.ID)
	}
	return nil
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "prescription", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *prescriptionRepoPG) ListByVisit(ctx context.Context, visitID int64) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+prescriptionCols+` FROM prescriptions
		WHERE visit_id = $1 ORDER BY id`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*PatientPrescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.visit_id, p.medicine_id, p.dosage, p.frequency, p.duration_days, p.notes, p.created_at,
			v.visit_date, m.name
		FROM prescriptions p
		JOIN visits v ON v.id = p.visit_id
		JOIN medicines m ON m.id = p.medicine_id
		WHERE v.patient_id = $1
		ORDER BY v.visit_date DESC, p.id
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PatientPrescription
	for rows.Next() {
		var pp PatientPrescription
		p := &pp.Prescription
		if err := rows.Scan(&p.ID, &p.VisitID, &p.MedicineID, &p.Dosage, &p.Frequency, &p.DurationDays, &p.Notes, &p.CreatedAt,
			&pp.VisitDate, &pp.MedicineName); err != nil {
			return nil, err
		}
		out = append(out, &pp)
	}
	return out, rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	if err := row.Scan(&p.ID, &p.VisitID, &p.MedicineID, &p.Dosage, &p.Frequency, &p.DurationDays, &p.Notes, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
