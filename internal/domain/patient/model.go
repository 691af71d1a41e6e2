package patient

import (
	"time"
)

// CodePrefix starts every generated patient code.
const CodePrefix = "BN"

// Column sizes of the patients table.
const (
	MaxCodeLength  = 20
	MaxPhoneLength = 20
)

// Patient maps to the patients table.
type Patient struct {
	ID          int64      `db:"id" json:"id"`
	PatientCode string     `db:"patient_code" json:"patient_code"`
	FullName    string     `db:"full_name" json:"full_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	PhoneNumber *string    `db:"phone_number" json:"phone_number,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Age returns the completed years between the birth date and on.
func (p *Patient) Age(on time.Time) (int, bool) {
	if p.DateOfBirth == nil {
		return 0, false
	}
	dob := *p.DateOfBirth
	years := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0, false
	}
	return years, true
}

// Patch lists the fields an update may change. The patient code is not
// among them.
type Patch struct {
	FullName    *string
	DateOfBirth *time.Time
	Gender      *string
	PhoneNumber *string
	Address     *string
	Notes       *string
}

// Apply copies every non-nil field onto p.
func (u Patch) Apply(p *Patient) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.DateOfBirth != nil {
		d := *u.DateOfBirth
		p.DateOfBirth = &d
	}
	if u.Gender != nil {
		p.Gender = u.Gender
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = u.PhoneNumber
	}
	if u.Address != nil {
		p.Address = u.Address
	}
	if u.Notes != nil {
		p.Notes = u.Notes
	}
}
