package visit

import (
	"time"
)

// Visit maps to the visits table. VisitDate carries no clock.
type Visit struct {
	ID         int64     `db:"id" json:"id"`
	PatientID  int64     `db:"patient_id" json:"patient_id"`
	VisitDate  time.Time `db:"visit_date" json:"visit_date"`
	Symptoms   *string   `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis  *string   `db:"diagnosis" json:"diagnosis,omitempty"`
	Conclusion *string   `db:"conclusion" json:"conclusion,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Patch lists the fields an update may change.
type Patch struct {
	VisitDate  *time.Time
	Symptoms   *string
	Diagnosis  *string
	Conclusion *string
	Notes      *string
}

func (u Patch) Apply(v *Visit) {
	if u.VisitDate != nil {
		v.VisitDate = *u.VisitDate
	}
	if u.Symptoms != nil {
		v.Symptoms = u.Symptoms
	}
	if u.Diagnosis != nil {
		v.Diagnosis = u.Diagnosis
	}
	if u.Conclusion != nil {
		v.Conclusion = u.Conclusion
	}
	if u.Notes != nil {
		v.Notes = u.Notes
	}
}
