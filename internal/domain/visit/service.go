package visit

import (
	"context"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/format"
	"github.com/clinicdesk/clinic/pkg/pagination"
)

// PatientLookup resolves the owning patient of a visit.
type PatientLookup interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

type Service struct {
	visits   Repository
	patients PatientLookup
	tx       db.Transactor
}

func NewService(visits Repository, patients PatientLookup, tx db.Transactor) *Service {
	return &Service{visits: visits, patients: patients, tx: tx}
}

// CreateVisit records a visit for an existing patient.
func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	normalize(v)
	if err := validate(v); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetByID(ctx, v.PatientID); err != nil {
			return err
		}
		return s.visits.Create(ctx, v)
	})
}

func (s *Service) GetVisit(ctx context.Context, id int64) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

func (s *Service) UpdateVisit(ctx context.Context, id int64, patch Patch) (*Visit, error) {
	var out *Visit
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		v, err := s.visits.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(v)
		normalize(v)
		if err := validate(v); err != nil {
			return err
		}
		if err := s.visits.Update(ctx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteVisit removes the visit with its test results and prescriptions.
// A linked appointment keeps existing with its visit reference cleared.
func (s *Service) DeleteVisit(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.visits.Delete(ctx, id)
		return err
	})
	return deleted, err
}

func (s *Service) ListPatientVisits(ctx context.Context, patientID int64, limit int) ([]*Visit, error) {
	return s.visits.ListByPatient(ctx, patientID, pagination.New(limit, 0).Limit)
}

func (s *Service) RecentVisits(ctx context.Context, limit int) ([]*Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.visits.Recent(ctx, pagination.New(limit, 0).Limit)
}

func (s *Service) ListVisitsByDateRange(ctx context.Context, from, to time.Time) ([]*Visit, error) {
	from, to = format.DateOnly(from), format.DateOnly(to)
	if !format.ValidDateRange(&from, &to) {
		return nil, apperr.Validation("start date %s is after end date %s", from.Format(format.StorageDateLayout), to.Format(format.StorageDateLayout))
	}
	return s.visits.ListByDateRange(ctx, from, to)
}

func (s *Service) CountVisits(ctx context.Context) (int, error) {
	return s.visits.Count(ctx)
}

func (s *Service) CountVisitsOn(ctx context.Context, day time.Time) (int, error) {
	return s.visits.CountOn(ctx, format.DateOnly(day))
}

func (s *Service) LastVisitForPatient(ctx context.Context, patientID int64) (*Visit, error) {
	return s.visits.LastForPatient(ctx, patientID)
}

// FindVisitByPatientAndDate returns the patient's visit on day, or a
// not-found error when there is none.
func (s *Service) FindVisitByPatientAndDate(ctx context.Context, patientID int64, day time.Time) (*Visit, error) {
	return s.visits.FindByPatientAndDate(ctx, patientID, format.DateOnly(day))
}

func normalize(v *Visit) {
	if !v.VisitDate.IsZero() {
		v.VisitDate = format.DateOnly(v.VisitDate)
	}
	v.Symptoms = format.TrimOptional(v.Symptoms)
	v.Diagnosis = format.TrimOptional(v.Diagnosis)
	v.Conclusion = format.TrimOptional(v.Conclusion)
	v.Notes = format.TrimOptional(v.Notes)
}

func validate(v *Visit) error {
	if v.PatientID == 0 {
		return apperr.Validation("patient_id is required")
	}
	if v.VisitDate.IsZero() {
		return apperr.Validation("visit_date is required")
	}
	return nil
}
