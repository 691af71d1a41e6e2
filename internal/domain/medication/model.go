package medication

import (
	"time"
)

// Medicine maps to the medicines table. Inactive medicines are hidden from
// default listings but remain referenced by historical prescriptions.
type Medicine struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Category    *string   `db:"category" json:"category,omitempty"`
	Unit        *string   `db:"unit" json:"unit,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type MedicinePatch struct {
	Name        *string
	Category    *string
	Unit        *string
	Description *string
	Active      *bool
}

func (u MedicinePatch) Apply(m *Medicine) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Category != nil {
		m.Category = u.Category
	}
	if u.Unit != nil {
		m.Unit = u.Unit
	}
	if u.Description != nil {
		m.Description = u.Description
	}
	if u.Active != nil {
		m.Active = *u.Active
	}
}

// Prescription maps to the prescriptions table.
type Prescription struct {
	ID           int64     `db:"id" json:"id"`
	VisitID      int64     `db:"visit_id" json:"visit_id"`
	MedicineID   int64     `db:"medicine_id" json:"medicine_id"`
	Dosage       *string   `db:"dosage" json:"dosage,omitempty"`
	Frequency    *string   `db:"frequency" json:"frequency,omitempty"`
	DurationDays *int      `db:"duration_days" json:"duration_days,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type PrescriptionPatch struct {
	MedicineID   *int64
	Dosage       *string
	Frequency    *string
	DurationDays *int
	Notes        *string
}

func (u PrescriptionPatch) Apply(p *Prescription) {
	if u.MedicineID != nil {
		p.MedicineID = *u.MedicineID
	}
	if u.Dosage != nil {
		p.Dosage = u.Dosage
	}
	if u.Frequency != nil {
		p.Frequency = u.Frequency
	}
	if u.DurationDays != nil {
		p.DurationDays = u.DurationDays
	}
	if u.Notes != nil {
		p.Notes = u.Notes
	}
}

// PatientPrescription is a prescription joined with its visit date and
// medicine name, as listed on a patient's history.
type PatientPrescription struct {
	Prescription
	VisitDate    time.Time `json:"visit_date"`
	MedicineName string    `json:"medicine_name"`
}
