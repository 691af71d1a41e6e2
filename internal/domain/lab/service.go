package lab

import (
	"context"
	"strings"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/visit"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/format"
)

// VisitLookup resolves the visit a result is attached to.
type VisitLookup interface {
	GetByID(ctx context.Context, id int64) (*visit.Visit, error)
}

type Service struct {
	types   TestTypeRepository
	results TestResultRepository
	visits  VisitLookup
	tx      db.Transactor
}

func NewService(types TestTypeRepository, results TestResultRepository, visits VisitLookup, tx db.Transactor) *Service {
	return &Service{types: types, results: results, visits: visits, tx: tx}
}

// -- TestType --

func (s *Service) CreateTestType(ctx context.Context, t *TestType) error {
	normalizeTestType(t)
	if err := validateTestType(t); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.types.Create(ctx, t)
	})
}

func (s *Service) GetTestType(ctx context.Context, id int64) (*TestType, error) {
	return s.types.GetByID(ctx, id)
}

func (s *Service) GetTestTypeByName(ctx context.Context, name string) (*TestType, error) {
	return s.types.GetByName(ctx, strings.TrimSpace(name))
}

// EnsureTestType returns the test type called name, creating it with unit
// when it does not exist. The bool reports whether it was created.
func (s *Service) EnsureTestType(ctx context.Context, name string, unit *string) (*TestType, bool, error) {
	var (
		out     *TestType
		created bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.types.GetByName(ctx, strings.TrimSpace(name))
		if err == nil {
			out = t
			return nil
		}
		if !apperr.IsNotFound(err) {
			return err
		}
		t = &TestType{Name: name, Unit: unit}
		normalizeTestType(t)
		if err := validateTestType(t); err != nil {
			return err
		}
		if err := s.types.Create(ctx, t); err != nil {
			return err
		}
		out, created = t, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *Service) UpdateTestType(ctx context.Context, id int64, patch TestTypePatch) (*TestType, error) {
	var out *TestType
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.types.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(t)
		normalizeTestType(t)
		if err := validateTestType(t); err != nil {
			return err
		}
		if err := s.types.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTestType fails with a conflict while results still reference the type.
func (s *Service) DeleteTestType(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.types.Delete(ctx, id)
		return err
	})
	return deleted, err
}

// ListTestTypes returns the catalog ordered by category then name.
func (s *Service) ListTestTypes(ctx context.Context) ([]*TestType, error) {
	return s.types.List(ctx)
}

func (s *Service) ListTestTypesByCategory(ctx context.Context, category string) ([]*TestType, error) {
	return s.types.ListByCategory(ctx, strings.TrimSpace(category))
}

// -- TestResult --

func (s *Service) CreateTestResult(ctx context.Context, r *TestResult) error {
	normalizeResult(r)
	if err := validateResult(r); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.visits.GetByID(ctx, r.VisitID); err != nil {
			return err
		}
		if _, err := s.types.GetByID(ctx, r.TestTypeID); err != nil {
			return err
		}
		return s.results.Create(ctx, r)
	})
}

func (s *Service) GetTestResult(ctx context.Context, id int64) (*TestResult, error) {
	return s.results.GetByID(ctx, id)
}

func (s *Service) UpdateTestResult(ctx context.Context, id int64, patch TestResultPatch) (*TestResult, error) {
	var out *TestResult
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.results.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(r)
		normalizeResult(r)
		if err := validateResult(r); err != nil {
			return err
		}
		if err := s.results.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteTestResult(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.results.Delete(ctx, id)
		return err
	})
	return deleted, err
}

func (s *Service) ListVisitResults(ctx context.Context, visitID int64) ([]*TestResult, error) {
	return s.results.ListByVisit(ctx, visitID)
}

// PatientTimeline returns the patient's readings of one test, oldest first.
func (s *Service) PatientTimeline(ctx context.Context, patientID, testTypeID int64, from, to *time.Time) ([]TimelinePoint, error) {
	from, to = dateOnlyPtr(from), dateOnlyPtr(to)
	if !format.ValidDateRange(from, to) {
		return nil, apperr.Validation("timeline start is after its end")
	}
	return s.results.Timeline(ctx, patientID, testTypeID, from, to)
}

// LatestResults returns the newest reading per test type with its range
// status filled in.
func (s *Service) LatestResults(ctx context.Context, patientID int64) ([]LatestResult, error) {
	latest, err := s.results.LatestByType(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i := range latest {
		l := &latest[i]
		l.Status = RangeUnknown
		if l.Value != nil {
			tt := TestType{NormalRangeMin: l.NormalMin, NormalRangeMax: l.NormalMax}
			l.Status = tt.Classify(*l.Value)
		}
	}
	return latest, nil
}

// ClassifyResult places a stored result against its test type's range.
func (s *Service) ClassifyResult(ctx context.Context, r *TestResult) (RangeStatus, error) {
	if r.ResultValue == nil {
		return RangeUnknown, nil
	}
	t, err := s.types.GetByID(ctx, r.TestTypeID)
	if err != nil {
		return RangeUnknown, err
	}
	return t.Classify(*r.ResultValue), nil
}

func normalizeTestType(t *TestType) {
	t.Name = strings.TrimSpace(t.Name)
	t.Category = format.TrimOptional(t.Category)
	t.Unit = format.TrimOptional(t.Unit)
	t.Description = format.TrimOptional(t.Description)
}

func validateTestType(t *TestType) error {
	if t.Name == "" {
		return apperr.Validation("test type name is required")
	}
	if t.NormalRangeMin != nil && t.NormalRangeMax != nil && *t.NormalRangeMin > *t.NormalRangeMax {
		return apperr.Validation("normal_range_min %g is greater than normal_range_max %g", *t.NormalRangeMin, *t.NormalRangeMax)
	}
	return nil
}

func normalizeResult(r *TestResult) {
	if !r.TestDate.IsZero() {
		r.TestDate = format.DateOnly(r.TestDate)
	}
	r.ResultText = format.TrimOptional(r.ResultText)
	r.Unit = format.TrimOptional(r.Unit)
	r.Notes = format.TrimOptional(r.Notes)
}

func validateResult(r *TestResult) error {
	if r.VisitID == 0 {
		return apperr.Validation("visit_id is required")
	}
	if r.TestTypeID == 0 {
		return apperr.Validation("test_type_id is required")
	}
	if r.TestDate.IsZero() {
		return apperr.Validation("test_date is required")
	}
	if r.ResultValue == nil && r.ResultText == nil {
		return apperr.Validation("result_value or result_text is required")
	}
	return nil
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := format.DateOnly(*t)
	return &d
}
