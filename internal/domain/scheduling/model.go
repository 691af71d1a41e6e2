package scheduling

import (
	"time"
)

// Appointment statuses. COMPLETED and CANCELLED are terminal.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusOverdue   = "OVERDUE"
	StatusCancelled = "CANCELLED"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusCompleted: true,
	StatusOverdue: true, StatusCancelled: true,
}

// transitions lists the statuses each status may move to.
var transitions = map[string][]string{
	StatusPending: {StatusOverdue, StatusCompleted, StatusCancelled},
	StatusOverdue: {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment maps to the appointments table. PatientName is filled from the
// patients join on reads.
type Appointment struct {
	ID              int64     `db:"id" json:"id"`
	VisitID         *int64    `db:"visit_id" json:"visit_id,omitempty"`
	PatientID       int64     `db:"patient_id" json:"patient_id"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`

	PatientName string `db:"-" json:"patient_name,omitempty"`
}

// Terminal reports whether no further status change is allowed.
func (a *Appointment) Terminal() bool {
	return len(transitions[a.Status]) == 0
}

// Overdue reports whether a pending appointment's date has passed as of today.
func (a *Appointment) Overdue(today time.Time) bool {
	return a.Status == StatusPending && a.AppointmentDate.Before(today)
}

// Patch lists the fields an update may change. Status moves only through
// MarkCompleted, MarkCancelled and the overdue scan.
type Patch struct {
	AppointmentDate *time.Time
	Reason          *string
	Notes           *string
	VisitID         *int64
}

func (u Patch) Apply(a *Appointment) {
	if u.AppointmentDate != nil {
		a.AppointmentDate = *u.AppointmentDate
	}
	if u.Reason != nil {
		a.Reason = u.Reason
	}
	if u.Notes != nil {
		a.Notes = u.Notes
	}
	if u.VisitID != nil {
		a.VisitID = u.VisitID
	}
}
