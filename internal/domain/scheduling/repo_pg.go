package scheduling

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

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `a.id, a.visit_id, a.patient_id, a.appointment_date, a.reason, a.status, a.notes, a.created_at, p.full_name`

const apptFrom = ` FROM appointments a JOIN patients p ON p.id = a.patient_id`

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (visit_id, patient_id, appointment_date, reason, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		a.VisitID, a.PatientID, a.AppointmentDate, a.Reason, a.Status, a.Notes,
	).Scan(&a.ID, &a.CreatedAt)
	return db.MapError(err, "appointment for patient", a.PatientID)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "appointment", id)
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET visit_id=$2, appointment_date=$3, reason=$4, status=$5, notes=$6
		WHERE id = $1`,
		a.ID, a.VisitID, a.AppointmentDate, a.Reason, a.Status, a.Notes,
	)
	if err != nil {
		return db.MapError(err, "appointment", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows, "appointment", a.ID)
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err, "appointment", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID int64, includeCompleted bool) ([]*Appointment, error) {
	return r.list(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.patient_id = $1 AND ($2 OR a.status <> 'COMPLETED')
		ORDER BY a.appointment_date DESC, a.id DESC`, patientID, includeCompleted)
}

func (r *appointmentRepoPG) ListByDate(ctx context.Context, day time.Time) ([]*Appointment, error) {
	return r.list(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.appointment_date = $1 AND a.status <> 'CANCELLED'
		ORDER BY a.patient_id, a.id`, day)
}

func (r *appointmentRepoPG) ListByDateRange(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	return r.list(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.appointment_date BETWEEN $1 AND $2 AND a.status <> 'CANCELLED'
		ORDER BY a.appointment_date, a.id`, from, to)
}

func (r *appointmentRepoPG) Upcoming(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	return r.list(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.appointment_date BETWEEN $1 AND $2 AND a.status IN ('PENDING', 'OVERDUE')
		ORDER BY a.appointment_date, a.id`, from, to)
}

func (r *appointmentRepoPG) PromoteOverdue(ctx context.Context, today time.Time) ([]*Appointment, error) {
	return r.list(ctx, `
		WITH promoted AS (
			UPDATE appointments SET status = 'OVERDUE'
			WHERE status = 'PENDING' AND appointment_date < $1
			RETURNING *
		)
		SELECT `+apptCols+` FROM promoted a JOIN patients p ON p.id = a.patient_id
		ORDER BY a.appointment_date, a.id`, today)
}

func (r *appointmentRepoPG) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE status = $1`, status).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.VisitID, &a.PatientID, &a.AppointmentDate, &a.Reason, &a.Status, &a.Notes, &a.CreatedAt,
		&a.PatientName); err != nil {
		return nil, err
	}
	return &a, nil
}
