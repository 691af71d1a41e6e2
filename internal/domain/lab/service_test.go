package lab

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/visit"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
)

// -- Mock Repositories --

type mockTypeRepo struct {
	types  map[int64]*TestType
	nextID int64
	inUse  map[int64]bool
}

func newMockTypeRepo() *mockTypeRepo {
	return &mockTypeRepo{types: make(map[int64]*TestType), inUse: make(map[int64]bool)}
}

func (m *mockTypeRepo) Create(_ context.Context, t *TestType) error {
	for _, existing := range m.types {
		if existing.Name == t.Name {
			return apperr.Conflict("test type "+t.Name+" already exists", nil)
		}
	}
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.types[t.ID] = &cp
	return nil
}

func (m *mockTypeRepo) GetByID(_ context.Context, id int64) (*TestType, error) {
	t, ok := m.types[id]
	if !ok {
		return nil, apperr.NotFound("test type", id)
	}
	cp := *t
	return &cp, nil
}

func (m *mockTypeRepo) GetByName(_ context.Context, name string) (*TestType, error) {
	for _, t := range m.types {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("test type", name)
}

func (m *mockTypeRepo) Update(_ context.Context, t *TestType) error {
	if _, ok := m.types[t.ID]; !ok {
		return apperr.NotFound("test type", t.ID)
	}
	cp := *t
	m.types[t.ID] = &cp
	return nil
}

func (m *mockTypeRepo) Delete(_ context.Context, id int64) (bool, error) {
	if m.inUse[id] {
		return false, apperr.Conflict("test type is referenced by results", nil)
	}
	if _, ok := m.types[id]; !ok {
		return false, nil
	}
	delete(m.types, id)
	return true, nil
}

func (m *mockTypeRepo) List(_ context.Context) ([]*TestType, error) {
	var out []*TestType
	for _, t := range m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockTypeRepo) ListByCategory(_ context.Context, category string) ([]*TestType, error) {
	var out []*TestType
	for _, t := range m.types {
		if t.Category != nil && *t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockResultRepo struct {
	results      map[int64]*TestResult
	nextID       int64
	visitPatient map[int64]int64
	types        *mockTypeRepo
}

func (m *mockResultRepo) Create(_ context.Context, r *TestResult) error {
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.results[r.ID] = &cp
	m.types.inUse[r.TestTypeID] = true
	return nil
}

func (m *mockResultRepo) GetByID(_ context.Context, id int64) (*TestResult, error) {
	r, ok := m.results[id]
	if !ok {
		return nil, apperr.NotFound("test result", id)
	}
	cp := *r
	return &cp, nil
}

func (m *mockResultRepo) Update(_ context.Context, r *TestResult) error {
	cp := *r
	m.results[r.ID] = &cp
	return nil
}

func (m *mockResultRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.results[id]; !ok {
		return false, nil
	}
	delete(m.results, id)
	return true, nil
}

func (m *mockResultRepo) ListByVisit(_ context.Context, visitID int64) ([]*TestResult, error) {
	var out []*TestResult
	for _, r := range m.results {
		if r.VisitID == visitID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockResultRepo) forPatient(patientID int64) []*TestResult {
	var out []*TestResult
	for _, r := range m.results {
		if m.visitPatient[r.VisitID] == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestDate.Before(out[j].TestDate) })
	return out
}

func (m *mockResultRepo) Timeline(_ context.Context, patientID, testTypeID int64, from, to *time.Time) ([]TimelinePoint, error) {
	var points []TimelinePoint
	for _, r := range m.forPatient(patientID) {
		if r.TestTypeID != testTypeID {
			continue
		}
		if (from != nil && r.TestDate.Before(*from)) || (to != nil && r.TestDate.After(*to)) {
			continue
		}
		points = append(points, TimelinePoint{ResultID: r.ID, VisitID: r.VisitID, Date: r.TestDate, Value: r.ResultValue, Text: r.ResultText})
	}
	return points, nil
}

func (m *mockResultRepo) LatestByType(_ context.Context, patientID int64) ([]LatestResult, error) {
	latest := map[int64]LatestResult{}
	for _, r := range m.forPatient(patientID) {
		t := m.types.types[r.TestTypeID]
		latest[r.TestTypeID] = LatestResult{
			TestTypeID: t.ID, TestName: t.Name, Date: r.TestDate, Value: r.ResultValue,
			NormalMin: t.NormalRangeMin, NormalMax: t.NormalRangeMax,
		}
	}
	var out []LatestResult
	for _, l := range latest {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestTypeID < out[j].TestTypeID })
	return out, nil
}

type mockVisits map[int64]*visit.Visit

func (m mockVisits) GetByID(_ context.Context, id int64) (*visit.Visit, error) {
	v, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("visit", id)
	}
	return v, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func newTestService() (*Service, *mockTypeRepo, *mockResultRepo) {
	types := newMockTypeRepo()
	results := &mockResultRepo{
		results:      make(map[int64]*TestResult),
		visitPatient: map[int64]int64{10: 1, 11: 1, 20: 2},
		types:        types,
	}
	visits := mockVisits{
		10: {ID: 10, PatientID: 1, VisitDate: day(2026, 1, 5)},
		11: {ID: 11, PatientID: 1, VisitDate: day(2026, 2, 5)},
		20: {ID: 20, PatientID: 2, VisitDate: day(2026, 1, 5)},
	}
	return NewService(types, results, visits, db.NopTransactor{}), types, results
}

// -- Tests --

func TestCreateTestType(t *testing.T) {
	svc, _, _ := newTestService()
	tt := &TestType{Name: " Glucose ", Unit: strPtr("mg/dL"), NormalRangeMin: floatPtr(70), NormalRangeMax: floatPtr(110)}
	if err := svc.CreateTestType(context.Background(), tt); err != nil {
		t.Fatalf("CreateTestType: %v", err)
	}
	if tt.ID == 0 || tt.Name != "Glucose" {
		t.Errorf("unexpected test type: %+v", tt)
	}

	err := svc.CreateTestType(context.Background(), &TestType{Name: "Glucose"})
	if !apperr.IsConflict(err) {
		t.Errorf("expected conflict for duplicate name, got %v", err)
	}
}

func TestCreateTestType_RejectsInvertedRange(t *testing.T) {
	svc, types, _ := newTestService()
	err := svc.CreateTestType(context.Background(), &TestType{Name: "HbA1c", NormalRangeMin: floatPtr(6.5), NormalRangeMax: floatPtr(4)})
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(types.types) != 0 {
		t.Error("expected nothing stored")
	}
	if err := svc.CreateTestType(context.Background(), &TestType{}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
}

func TestEnsureTestType(t *testing.T) {
	svc, types, _ := newTestService()
	ctx := context.Background()

	tt, created, err := svc.EnsureTestType(ctx, "Cholesterol", strPtr("mmol/L"))
	if err != nil || !created {
		t.Fatalf("expected creation, created=%v err=%v", created, err)
	}
	again, created, err := svc.EnsureTestType(ctx, "Cholesterol", nil)
	if err != nil || created || again.ID != tt.ID {
		t.Errorf("expected existing type returned, got %+v created=%v err=%v", again, created, err)
	}
	if len(types.types) != 1 {
		t.Errorf("expected one test type, got %d", len(types.types))
	}
}

func TestUpdateAndDeleteTestType(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	tt := &TestType{Name: "Glucose", NormalRangeMin: floatPtr(70), NormalRangeMax: floatPtr(110)}
	_ = svc.CreateTestType(ctx, tt)

	updated, err := svc.UpdateTestType(ctx, tt.ID, TestTypePatch{Category: strPtr("Sinh hoa")})
	if err != nil || updated.Category == nil || *updated.Category != "Sinh hoa" {
		t.Fatalf("UpdateTestType: %+v %v", updated, err)
	}
	if _, err := svc.UpdateTestType(ctx, tt.ID, TestTypePatch{NormalRangeMin: floatPtr(200)}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for min above max, got %v", err)
	}

	byCat, _ := svc.ListTestTypesByCategory(ctx, "Sinh hoa")
	if len(byCat) != 1 {
		t.Errorf("expected one type in category, got %d", len(byCat))
	}

	ok, err := svc.DeleteTestType(ctx, tt.ID)
	if err != nil || !ok {
		t.Errorf("expected delete, ok=%v err=%v", ok, err)
	}
}

func TestDeleteTestType_InUse(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	tt := &TestType{Name: "Glucose"}
	_ = svc.CreateTestType(ctx, tt)
	_ = svc.CreateTestResult(ctx, &TestResult{VisitID: 10, TestTypeID: tt.ID, TestDate: day(2026, 1, 5), ResultValue: floatPtr(95)})

	if _, err := svc.DeleteTestType(ctx, tt.ID); !apperr.IsConflict(err) {
		t.Errorf("expected conflict while results reference the type, got %v", err)
	}
}

func TestCreateTestResult(t *testing.T) {
	svc, _, results := newTestService()
	ctx := context.Background()
	tt := &TestType{Name: "Glucose"}
	_ = svc.CreateTestType(ctx, tt)

	r := &TestResult{VisitID: 10, TestTypeID: tt.ID, TestDate: day(2026, 1, 5), ResultText: strPtr("  Am tinh ")}
	if err := svc.CreateTestResult(ctx, r); err != nil {
		t.Fatalf("CreateTestResult: %v", err)
	}
	if *r.ResultText != "Am tinh" {
		t.Errorf("expected trimmed text, got %q", *r.ResultText)
	}

	cases := []struct {
		name string
		r    *TestResult
		is   func(error) bool
	}{
		{"no value", &TestResult{VisitID: 10, TestTypeID: tt.ID, TestDate: day(2026, 1, 5)}, apperr.IsValidation},
		{"no date", &TestResult{VisitID: 10, TestTypeID: tt.ID, ResultValue: floatPtr(1)}, apperr.IsValidation},
		{"unknown visit", &TestResult{VisitID: 99, TestTypeID: tt.ID, TestDate: day(2026, 1, 5), ResultValue: floatPtr(1)}, apperr.IsNotFound},
		{"unknown type", &TestResult{VisitID: 10, TestTypeID: 99, TestDate: day(2026, 1, 5), ResultValue: floatPtr(1)}, apperr.IsNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := svc.CreateTestResult(ctx, c.r); !c.is(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	if len(results.results) != 1 {
		t.Errorf("expected only the valid result stored, got %d", len(results.results))
	}
}

func TestUpdateTestResult(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	tt := &TestType{Name: "Glucose"}
	_ = svc.CreateTestType(ctx, tt)
	r := &TestResult{VisitID: 10, TestTypeID: tt.ID, TestDate: day(2026, 1, 5), ResultValue: floatPtr(95)}
	_ = svc.CreateTestResult(ctx, r)

	updated, err := svc.UpdateTestResult(ctx, r.ID, TestResultPatch{ResultValue: floatPtr(101)})
	if err != nil || *updated.ResultValue != 101 {
		t.Fatalf("UpdateTestResult: %+v %v", updated, err)
	}
	if _, err := svc.UpdateTestResult(ctx, 404, TestResultPatch{}); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	ok, _ := svc.DeleteTestResult(ctx, r.ID)
	if !ok {
		t.Error("expected delete")
	}
}

func TestPatientTimelineAndLatest(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	glucose := &TestType{Name: "Glucose", NormalRangeMin: floatPtr(70), NormalRangeMax: floatPtr(110)}
	hba1c := &TestType{Name: "HbA1c"}
	_ = svc.CreateTestType(ctx, glucose)
	_ = svc.CreateTestType(ctx, hba1c)

	_ = svc.CreateTestResult(ctx, &TestResult{VisitID: 11, TestTypeID: glucose.ID, TestDate: day(2026, 2, 5), ResultValue: floatPtr(120)})
	_ = svc.CreateTestResult(ctx, &TestResult{VisitID: 10, TestTypeID: glucose.ID, TestDate: day(2026, 1, 5), ResultValue: floatPtr(95)})
	_ = svc.CreateTestResult(ctx, &TestResult{VisitID: 10, TestTypeID: hba1c.ID, TestDate: day(2026, 1, 5), ResultText: strPtr("pending")})
	_ = svc.CreateTestResult(ctx, &TestResult{VisitID: 20, TestTypeID: glucose.ID, TestDate: day(2026, 1, 5), ResultValue: floatPtr(60)})

	points, err := svc.PatientTimeline(ctx, 1, glucose.ID, nil, nil)
	if err != nil {
		t.Fatalf("PatientTimeline: %v", err)
	}
	if len(points) != 2 || *points[0].Value != 95 || *points[1].Value != 120 {
		t.Errorf("expected oldest-first readings 95, 120, got %+v", points)
	}

	from := day(2026, 2, 1)
	points, _ = svc.PatientTimeline(ctx, 1, glucose.ID, &from, nil)
	if len(points) != 1 {
		t.Errorf("expected 1 reading from February, got %d", len(points))
	}
	to := day(2026, 1, 1)
	if _, err := svc.PatientTimeline(ctx, 1, glucose.ID, &from, &to); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}

	latest, err := svc.LatestResults(ctx, 1)
	if err != nil {
		t.Fatalf("LatestResults: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 test types, got %d", len(latest))
	}
	if latest[0].TestName != "Glucose" || *latest[0].Value != 120 || latest[0].Status != RangeHigh {
		t.Errorf("expected latest glucose 120 flagged high, got %+v", latest[0])
	}
	if latest[1].Status != RangeUnknown {
		t.Errorf("expected text-only result to be unknown, got %s", latest[1].Status)
	}
}

func TestClassifyResult(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	glucose := &TestType{Name: "Glucose", NormalRangeMin: floatPtr(70), NormalRangeMax: floatPtr(110)}
	_ = svc.CreateTestType(ctx, glucose)

	status, err := svc.ClassifyResult(ctx, &TestResult{TestTypeID: glucose.ID, ResultValue: floatPtr(120)})
	if err != nil || status != RangeHigh {
		t.Errorf("expected high, got %s %v", status, err)
	}
	status, _ = svc.ClassifyResult(ctx, &TestResult{TestTypeID: glucose.ID, ResultText: strPtr("n/a")})
	if status != RangeUnknown {
		t.Errorf("expected unknown for text result, got %s", status)
	}
}
