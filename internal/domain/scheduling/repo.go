package scheduling

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) (bool, error)

	// ListByPatient orders by appointment date, newest first.
	ListByPatient(ctx context.Context, patientID int64, includeCompleted bool) ([]*Appointment, error)

	// ListByDate and ListByDateRange leave out CANCELLED appointments.
	ListByDate(ctx context.Context, day time.Time) ([]*Appointment, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Appointment, error)

	// Upcoming returns PENDING and OVERDUE appointments dated within [from, to].
	Upcoming(ctx context.Context, from, to time.Time) ([]*Appointment, error)

	// PromoteOverdue moves PENDING appointments dated before today to OVERDUE
	// and returns the promoted rows.
	PromoteOverdue(ctx context.Context, today time.Time) ([]*Appointment, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}
