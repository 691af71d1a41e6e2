package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/lab"
	"github.com/clinicdesk/clinic/internal/domain/medication"
	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/domain/visit"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
)

// -- In-memory record store --

type fakeStore struct {
	nextID   int64
	patients map[string]*patient.Patient
	meds     []*medication.Medicine
	types    map[string]*lab.TestType
	visits   []*visit.Visit
	results  []*lab.TestResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients: make(map[string]*patient.Patient),
		types:    make(map[string]*lab.TestType),
	}
}

func (f *fakeStore) stores() Stores {
	return Stores{Patients: f, Medicines: f, Lab: f, Visits: f}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) GetPatientByCode(_ context.Context, code string) (*patient.Patient, error) {
	p, ok := f.patients[strings.TrimSpace(code)]
	if !ok {
		return nil, apperr.NotFound("patient", code)
	}
	return p, nil
}

func (f *fakeStore) ImportPatient(_ context.Context, p *patient.Patient) error {
	if _, ok := f.patients[p.PatientCode]; ok {
		return apperr.Conflict("patient_code "+p.PatientCode+" already exists", nil)
	}
	p.ID = f.id()
	f.patients[p.PatientCode] = p
	return nil
}

func (f *fakeStore) FindActiveMedicineByName(_ context.Context, name string) (*medication.Medicine, error) {
	for _, m := range f.meds {
		if m.Active && strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return nil, apperr.NotFound("active medicine", name)
}

func (f *fakeStore) CreateMedicine(_ context.Context, m *medication.Medicine) error {
	m.ID = f.id()
	m.Active = true
	f.meds = append(f.meds, m)
	return nil
}

func (f *fakeStore) GetTestTypeByName(_ context.Context, name string) (*lab.TestType, error) {
	t, ok := f.types[name]
	if !ok {
		return nil, apperr.NotFound("test type", name)
	}
	return t, nil
}

func (f *fakeStore) CreateTestType(_ context.Context, t *lab.TestType) error {
	if t.NormalRangeMin != nil && t.NormalRangeMax != nil && *t.NormalRangeMin > *t.NormalRangeMax {
		return apperr.Validation("normal_range_min %g is greater than normal_range_max %g", *t.NormalRangeMin, *t.NormalRangeMax)
	}
	if _, ok := f.types[t.Name]; ok {
		return apperr.Conflict("test type "+t.Name+" already exists", nil)
	}
	t.ID = f.id()
	f.types[t.Name] = t
	return nil
}

func (f *fakeStore) EnsureTestType(ctx context.Context, name string, unit *string) (*lab.TestType, bool, error) {
	if t, ok := f.types[name]; ok {
		return t, false, nil
	}
	t := &lab.TestType{Name: name, Unit: unit}
	if err := f.CreateTestType(ctx, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (f *fakeStore) CreateTestResult(_ context.Context, r *lab.TestResult) error {
	r.ID = f.id()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeStore) FindVisitByPatientAndDate(_ context.Context, patientID int64, day time.Time) (*visit.Visit, error) {
	for _, v := range f.visits {
		if v.PatientID == patientID && v.VisitDate.Equal(day) {
			return v, nil
		}
	}
	return nil, apperr.NotFound("visit for patient", patientID)
}

func (f *fakeStore) CreateVisit(_ context.Context, v *visit.Visit) error {
	v.ID = f.id()
	f.visits = append(f.visits, v)
	return nil
}

func (f *fakeStore) addPatient(code, name string) *patient.Patient {
	p := &patient.Patient{PatientCode: code, FullName: name}
	_ = f.ImportPatient(context.Background(), p)
	return p
}

func (f *fakeStore) addTestType(name string) *lab.TestType {
	t := &lab.TestType{Name: name}
	_ = f.CreateTestType(context.Background(), t)
	return t
}

// countingTx counts transactions and runs fn without a database.
type countingTx struct {
	db.NopTransactor
	calls int
}

func (c *countingTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return c.NopTransactor.InTx(ctx, fn)
}

// -- helpers --

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestPipeline(f *fakeStore) *Pipeline {
	p := New(f.stores(), db.NopTransactor{}, Config{})
	p.now = func() time.Time { return time.Date(2026, 1, 25, 9, 0, 0, 0, time.UTC) }
	return p
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
