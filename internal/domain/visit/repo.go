package visit

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id int64) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id int64) (bool, error)
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*Visit, error)
	Recent(ctx context.Context, limit int) ([]*Visit, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Visit, error)
	Count(ctx context.Context) (int, error)
	CountOn(ctx context.Context, day time.Time) (int, error)

	// FindByPatientAndDate returns the earliest-created visit of patientID on
	// day, or a not-found error.
	FindByPatientAndDate(ctx context.Context, patientID int64, day time.Time) (*Visit, error)
	LastForPatient(ctx context.Context, patientID int64) (*Visit, error)
}
