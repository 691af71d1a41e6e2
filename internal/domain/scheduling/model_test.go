package scheduling

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusOverdue, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusOverdue, StatusCompleted, true},
		{StatusOverdue, StatusCancelled, true},
		{StatusOverdue, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAppointment_Terminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending: false, StatusOverdue: false,
		StatusCompleted: true, StatusCancelled: true,
	} {
		a := &Appointment{Status: status}
		if a.Terminal() != want {
			t.Errorf("%s terminal = %v, want %v", status, a.Terminal(), want)
		}
	}
}

func TestAppointment_Overdue(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	if !(&Appointment{Status: StatusPending, AppointmentDate: yesterday}).Overdue(today) {
		t.Error("expected pending appointment from yesterday to be overdue")
	}
	if (&Appointment{Status: StatusPending, AppointmentDate: today}).Overdue(today) {
		t.Error("an appointment dated today is not overdue")
	}
	if (&Appointment{Status: StatusCancelled, AppointmentDate: yesterday}).Overdue(today) {
		t.Error("cancelled appointments never become overdue")
	}
}

func TestPatch_Apply(t *testing.T) {
	reason := "Tai kham"
	var visitID int64 = 7
	a := &Appointment{Status: StatusPending}
	Patch{Reason: &reason, VisitID: &visitID}.Apply(a)
	if *a.Reason != reason || *a.VisitID != 7 || a.Status != StatusPending {
		t.Errorf("unexpected patch result: %+v", a)
	}
}
