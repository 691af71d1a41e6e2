package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/lab"
	"github.com/clinicdesk/clinic/internal/domain/medication"
	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/domain/visit"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
)

// Text stored on visits created to host imported test results.
const (
	synthesizedSymptoms  = "Test result import: %s"
	synthesizedDiagnosis = "Lab test: %s"
)

func (p *Pipeline) importPatient(ctx context.Context, rec record, opts Options) (Outcome, error) {
	if err := rec.require(FieldPatientCode, FieldFullName); err != nil {
		return Failed, err
	}
	code := rec.str(FieldPatientCode)
	if opts.SkipDuplicates {
		dup, err := exists(p.stores.Patients.GetPatientByCode(ctx, code))
		if err != nil {
			return Failed, err
		}
		if dup {
			return Skipped, nil
		}
	}

	pt := &patient.Patient{
		PatientCode: code,
		FullName:    rec.str(FieldFullName),
		Gender:      rec.opt(FieldGender),
		PhoneNumber: rec.opt(FieldPhoneNumber),
		Address:     rec.opt(FieldAddress),
		Notes:       rec.joinNotes(KindPatient, FieldNotes, FieldEmail, FieldBloodType, FieldAllergies, FieldMedicalHistory),
	}
	// An unreadable birth date is dropped rather than failing the row.
	if dob, ok := rec.date(FieldDateOfBirth, p.cfg.DateLayout); ok {
		pt.DateOfBirth = &dob
	}
	if err := p.stores.Patients.ImportPatient(ctx, pt); err != nil {
		return Failed, err
	}
	return Imported, nil
}

func (p *Pipeline) importMedicine(ctx context.Context, rec record, opts Options) (Outcome, error) {
	if err := rec.require(FieldName); err != nil {
		return Failed, err
	}
	name := rec.str(FieldName)
	if opts.SkipDuplicates {
		dup, err := exists(p.stores.Medicines.FindActiveMedicineByName(ctx, name))
		if err != nil {
			return Failed, err
		}
		if dup {
			return Skipped, nil
		}
	}

	m := &medication.Medicine{
		Name:        name,
		Category:    rec.opt(FieldCategory),
		Unit:        rec.opt(FieldUnit),
		Description: rec.joinNotes(KindMedicine, FieldDescription, FieldNotes),
	}
	if err := p.stores.Medicines.CreateMedicine(ctx, m); err != nil {
		return Failed, err
	}
	return Imported, nil
}

func (p *Pipeline) importTestType(ctx context.Context, rec record, opts Options) (Outcome, error) {
	if err := rec.require(FieldName, FieldUnit); err != nil {
		return Failed, err
	}
	name := rec.str(FieldName)
	if opts.SkipDuplicates {
		dup, err := exists(p.stores.Lab.GetTestTypeByName(ctx, name))
		if err != nil {
			return Failed, err
		}
		if dup {
			return Skipped, nil
		}
	}

	t := &lab.TestType{
		Name:           name,
		Category:       rec.opt(FieldCategory),
		Unit:           rec.opt(FieldUnit),
		NormalRangeMin: rec.float(FieldRangeMin),
		NormalRangeMax: rec.float(FieldRangeMax),
		Description:    rec.opt(FieldDescription),
	}
	if err := p.stores.Lab.CreateTestType(ctx, t); err != nil {
		return Failed, err
	}
	return Imported, nil
}

func (p *Pipeline) importVisit(ctx context.Context, rec record) (Outcome, error) {
	if err := rec.require(FieldPatientCode, FieldVisitDate); err != nil {
		return Failed, err
	}
	date, err := rec.requireDate(FieldVisitDate, p.cfg.DateLayout)
	if err != nil {
		return Failed, err
	}
	pt, err := p.stores.Patients.GetPatientByCode(ctx, rec.str(FieldPatientCode))
	if err != nil {
		return Failed, err
	}

	v := &visit.Visit{
		PatientID:  pt.ID,
		VisitDate:  date,
		Symptoms:   rec.opt(FieldSymptoms),
		Diagnosis:  rec.opt(FieldDiagnosis),
		Conclusion: rec.opt(FieldConclusion),
		Notes:      rec.opt(FieldNotes),
	}
	if err := p.stores.Visits.CreateVisit(ctx, v); err != nil {
		return Failed, err
	}
	return Imported, nil
}

// importTestResult resolves the patient and test type before writing
// anything, then attaches the result to the patient's visit on the test
// date, creating that visit when there is none.
func (p *Pipeline) importTestResult(ctx context.Context, rec record, opts Options) (Outcome, error) {
	if err := rec.require(FieldPatientCode, FieldTestTypeName, FieldTestDate); err != nil {
		return Failed, err
	}
	date, err := rec.requireDate(FieldTestDate, p.cfg.DateLayout)
	if err != nil {
		return Failed, err
	}

	value := rec.float(FieldResultValue)
	text := rec.opt(FieldResultText)
	if value == nil && text == nil && rec.has(FieldResultValue) {
		// Non-numeric results such as "Am tinh" are kept as text.
		text = rec.opt(FieldResultValue)
	}
	if value == nil && text == nil {
		return Failed, apperr.Validation("missing required field %s or %s", FieldResultValue, FieldResultText)
	}

	pt, err := p.stores.Patients.GetPatientByCode(ctx, rec.str(FieldPatientCode))
	if err != nil {
		return Failed, err
	}
	name := strings.TrimSpace(rec.str(FieldTestTypeName))
	var tt *lab.TestType
	if opts.CreateMissingTestTypes {
		tt, _, err = p.stores.Lab.EnsureTestType(ctx, name, rec.opt(FieldUnit))
	} else {
		tt, err = p.stores.Lab.GetTestTypeByName(ctx, name)
	}
	if err != nil {
		return Failed, err
	}

	v, err := p.visitFor(ctx, pt.ID, date, tt.Name)
	if err != nil {
		return Failed, err
	}
	r := &lab.TestResult{
		VisitID:     v.ID,
		TestTypeID:  tt.ID,
		ResultValue: value,
		ResultText:  text,
		Unit:        rec.opt(FieldUnit),
		TestDate:    date,
		Notes:       rec.opt(FieldNotes),
	}
	if err := p.stores.Lab.CreateTestResult(ctx, r); err != nil {
		return Failed, err
	}
	return Imported, nil
}

func (p *Pipeline) visitFor(ctx context.Context, patientID int64, date time.Time, testName string) (*visit.Visit, error) {
	v, err := p.stores.Visits.FindVisitByPatientAndDate(ctx, patientID, date)
	if err == nil {
		return v, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	symptoms := fmt.Sprintf(synthesizedSymptoms, testName)
	diagnosis := fmt.Sprintf(synthesizedDiagnosis, testName)
	v = &visit.Visit{
		PatientID: patientID,
		VisitDate: date,
		Symptoms:  &symptoms,
		Diagnosis: &diagnosis,
	}
	if err := p.stores.Visits.CreateVisit(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// exists turns a lookup into a presence check; not-found is not an error.
func exists[T any](v *T, err error) (bool, error) {
	if err == nil {
		return v != nil, nil
	}
	if apperr.IsNotFound(err) {
		return false, nil
	}
	return false, err
}
