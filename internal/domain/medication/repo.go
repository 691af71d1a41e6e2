package medication

import (
	"context"
)

type MedicineRepository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id int64) (*Medicine, error)
	GetByName(ctx context.Context, name string) (*Medicine, error)

	// FindActiveByName matches name trimmed and case-insensitively against
	// active medicines only.
	FindActiveByName(ctx context.Context, name string) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]*Medicine, error)
	ListByCategory(ctx context.Context, category string, activeOnly bool) ([]*Medicine, error)
	Search(ctx context.Context, keyword string, activeOnly bool) ([]*Medicine, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id int64) (bool, error)
	ListByVisit(ctx context.Context, visitID int64) ([]*Prescription, error)
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*PatientPrescription, error)
}
