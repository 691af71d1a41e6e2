package importer

import (
	"context"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/lab"
	"github.com/clinicdesk/clinic/internal/domain/medication"
	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/domain/visit"
)

// The store interfaces are the slices of the record services the pipeline
// needs. The domain services satisfy them directly.

type PatientStore interface {
	GetPatientByCode(ctx context.Context, code string) (*patient.Patient, error)
	ImportPatient(ctx context.Context, p *patient.Patient) error
}

type MedicineStore interface {
	FindActiveMedicineByName(ctx context.Context, name string) (*medication.Medicine, error)
	CreateMedicine(ctx context.Context, m *medication.Medicine) error
}

type LabStore interface {
	GetTestTypeByName(ctx context.Context, name string) (*lab.TestType, error)
	CreateTestType(ctx context.Context, t *lab.TestType) error
	EnsureTestType(ctx context.Context, name string, unit *string) (*lab.TestType, bool, error)
	CreateTestResult(ctx context.Context, r *lab.TestResult) error
}

type VisitStore interface {
	FindVisitByPatientAndDate(ctx context.Context, patientID int64, day time.Time) (*visit.Visit, error)
	CreateVisit(ctx context.Context, v *visit.Visit) error
}

// Stores bundles the record services an import writes through.
type Stores struct {
	Patients  PatientStore
	Medicines MedicineStore
	Lab       LabStore
	Visits    VisitStore
}
