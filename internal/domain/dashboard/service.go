// Package dashboard assembles the home screen figures from the record services.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicdesk/clinic/internal/domain/scheduling"
	"github.com/clinicdesk/clinic/internal/platform/format"
)

type PatientCounter interface {
	CountPatients(ctx context.Context) (int, error)
}

type VisitCounter interface {
	CountVisits(ctx context.Context) (int, error)
	CountVisitsOn(ctx context.Context, day time.Time) (int, error)
}

type AppointmentSource interface {
	ScanAndPromoteOverdue(ctx context.Context, today time.Time) ([]*scheduling.Appointment, error)
	CountOverdue(ctx context.Context) (int, error)
	Upcoming(ctx context.Context, today time.Time, days int) ([]*scheduling.Appointment, error)
}

// Summary holds the dashboard figures as of Today.
type Summary struct {
	GeneratedAt   time.Time `json:"generated_at"`
	Today         time.Time `json:"today"`
	TotalPatients int       `json:"total_patients"`
	TotalVisits   int       `json:"total_visits"`
	VisitsToday   int       `json:"visits_today"`

	// Upcoming lists open appointments in the look-ahead window.
	Upcoming []*scheduling.Appointment `json:"upcoming"`

	// Overdue counts every OVERDUE appointment after this run's promotion;
	// Promoted are the ones this run moved.
	Overdue  int                       `json:"overdue"`
	Promoted []*scheduling.Appointment `json:"promoted,omitempty"`
}

// HasAlerts reports whether the overdue warning should be shown.
func (s *Summary) HasAlerts() bool {
	return s.Overdue > 0
}

// Alert is the overdue warning line, empty when nothing is overdue.
func (s *Summary) Alert() string {
	if !s.HasAlerts() {
		return ""
	}
	return fmt.Sprintf("%d appointment(s) overdue", s.Overdue)
}

type Service struct {
	patients     PatientCounter
	visits       VisitCounter
	appointments AppointmentSource
	upcomingDays int
}

// NewService builds the dashboard. upcomingDays <= 0 uses the scheduling default.
func NewService(patients PatientCounter, visits VisitCounter, appointments AppointmentSource, upcomingDays int) *Service {
	return &Service{patients: patients, visits: visits, appointments: appointments, upcomingDays: upcomingDays}
}

// Summary promotes overdue appointments first, so the overdue figure is
// current, then gathers the counts.
func (s *Service) Summary(ctx context.Context, now time.Time) (*Summary, error) {
	today := format.DateOnly(now)
	sum := &Summary{GeneratedAt: now, Today: today}

	promoted, err := s.appointments.ScanAndPromoteOverdue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("promote overdue appointments: %w", err)
	}
	sum.Promoted = promoted

	if sum.TotalPatients, err = s.patients.CountPatients(ctx); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if sum.TotalVisits, err = s.visits.CountVisits(ctx); err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}
	if sum.VisitsToday, err = s.visits.CountVisitsOn(ctx, today); err != nil {
		return nil, fmt.Errorf("count visits today: %w", err)
	}
	if sum.Overdue, err = s.appointments.CountOverdue(ctx); err != nil {
		return nil, fmt.Errorf("count overdue appointments: %w", err)
	}
	if sum.Upcoming, err = s.appointments.Upcoming(ctx, today, s.upcomingDays); err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return sum, nil
}
