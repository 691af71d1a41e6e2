package scheduling

import (
	"context"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/format"
	"github.com/clinicdesk/clinic/internal/platform/metrics"
)

// DefaultUpcomingDays is the look-ahead window of Upcoming when days is not positive.
const DefaultUpcomingDays = 7

type PatientLookup interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

type Service struct {
	appointments Repository
	patients     PatientLookup
	tx           db.Transactor
	metrics      *metrics.Recorder
}

// NewService builds the appointment service. rec may be nil.
func NewService(appointments Repository, patients PatientLookup, tx db.Transactor, rec *metrics.Recorder) *Service {
	return &Service{appointments: appointments, patients: patients, tx: tx, metrics: rec}
}

// CreateAppointment books a PENDING appointment for an existing patient.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	a.Status = StatusPending
	normalize(a)
	if err := validate(a); err != nil {
		return err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, a.PatientID)
		if err != nil {
			return err
		}
		a.PatientName = p.FullName
		return s.appointments.Create(ctx, a)
	})
	if err == nil {
		s.metrics.RecordCreated("appointment")
	}
	return err
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) UpdateAppointment(ctx context.Context, id int64, patch Patch) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(a)
		normalize(a)
		if err := validate(a); err != nil {
			return err
		}
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.appointments.Delete(ctx, id)
		return err
	})
	return deleted, err
}

// MarkCompleted closes an appointment, linking it to the visit that
// fulfilled it when visitID is given.
func (s *Service) MarkCompleted(ctx context.Context, id int64, visitID *int64) (*Appointment, error) {
	return s.setStatus(ctx, id, StatusCompleted, visitID)
}

func (s *Service) MarkCancelled(ctx context.Context, id int64) (*Appointment, error) {
	return s.setStatus(ctx, id, StatusCancelled, nil)
}

func (s *Service) setStatus(ctx context.Context, id int64, status string, visitID *int64) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(a.Status, status) {
			return apperr.Validation("appointment %d cannot move from %s to %s", id, a.Status, status)
		}
		a.Status = status
		if visitID != nil {
			a.VisitID = visitID
		}
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPatientAppointments returns a patient's appointments, newest first.
// COMPLETED ones are left out unless includeCompleted is set.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID int64, includeCompleted bool) ([]*Appointment, error) {
	return s.appointments.ListByPatient(ctx, patientID, includeCompleted)
}

func (s *Service) AppointmentsOn(ctx context.Context, day time.Time) ([]*Appointment, error) {
	return s.appointments.ListByDate(ctx, format.DateOnly(day))
}

func (s *Service) AppointmentsBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	from, to = format.DateOnly(from), format.DateOnly(to)
	if !format.ValidDateRange(&from, &to) {
		return nil, apperr.Validation("appointment range start is after its end")
	}
	return s.appointments.ListByDateRange(ctx, from, to)
}

// Upcoming returns open appointments from today through today+days.
func (s *Service) Upcoming(ctx context.Context, today time.Time, days int) ([]*Appointment, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	from := format.DateOnly(today)
	return s.appointments.Upcoming(ctx, from, from.AddDate(0, 0, days))
}

// ScanAndPromoteOverdue moves every PENDING appointment dated before today
// to OVERDUE. The change is committed before the promoted set is returned.
func (s *Service) ScanAndPromoteOverdue(ctx context.Context, today time.Time) ([]*Appointment, error) {
	var promoted []*Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		promoted, err = s.appointments.PromoteOverdue(ctx, format.DateOnly(today))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OverduePromoted(len(promoted))
	return promoted, nil
}

// CountOverdue counts appointments currently in OVERDUE. Run
// ScanAndPromoteOverdue first for an up-to-date figure.
func (s *Service) CountOverdue(ctx context.Context) (int, error) {
	return s.appointments.CountByStatus(ctx, StatusOverdue)
}

func normalize(a *Appointment) {
	if !a.AppointmentDate.IsZero() {
		a.AppointmentDate = format.DateOnly(a.AppointmentDate)
	}
	a.Reason = format.TrimOptional(a.Reason)
	a.Notes = format.TrimOptional(a.Notes)
}

func validate(a *Appointment) error {
	if a.PatientID == 0 {
		return apperr.Validation("patient_id is required")
	}
	if a.AppointmentDate.IsZero() {
		return apperr.Validation("appointment_date is required")
	}
	if !ValidStatus(a.Status) {
		return apperr.Validation("invalid appointment status: %s", a.Status)
	}
	return nil
}
