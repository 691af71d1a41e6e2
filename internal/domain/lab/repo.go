package lab

import (
	"context"
	"time"
)

type TestTypeRepository interface {
	Create(ctx context.Context, t *TestType) error
	GetByID(ctx context.Context, id int64) (*TestType, error)
	GetByName(ctx context.Context, name string) (*TestType, error)
	Update(ctx context.Context, t *TestType) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]*TestType, error)
	ListByCategory(ctx context.Context, category string) ([]*TestType, error)
}

type TestResultRepository interface {
	Create(ctx context.Context, r *TestResult) error
	GetByID(ctx context.Context, id int64) (*TestResult, error)
	Update(ctx context.Context, r *TestResult) error
	Delete(ctx context.Context, id int64) (bool, error)
	ListByVisit(ctx context.Context, visitID int64) ([]*TestResult, error)

	// Timeline returns the patient's readings of one test type ordered by
	// test date. Nil bounds are open.
	Timeline(ctx context.Context, patientID, testTypeID int64, from, to *time.Time) ([]TimelinePoint, error)

	// LatestByType returns the newest reading per test type for a patient.
	LatestByType(ctx context.Context, patientID int64) ([]LatestResult, error)
}
