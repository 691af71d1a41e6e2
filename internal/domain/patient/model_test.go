package patient

import (
	"testing"
	"time"
)

func TestPatient_Age(t *testing.T) {
	dob := time.Date(1990, time.March, 15, 0, 0, 0, 0, time.UTC)
	p := &Patient{DateOfBirth: &dob}

	if age, ok := p.Age(time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)); !ok || age != 35 {
		t.Errorf("expected 35 the day before the birthday, got %d", age)
	}
	if age, ok := p.Age(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)); !ok || age != 36 {
		t.Errorf("expected 36 on the birthday, got %d", age)
	}
	if _, ok := (&Patient{}).Age(time.Now()); ok {
		t.Error("expected no age without a birth date")
	}
}

func TestPatch_Apply(t *testing.T) {
	name := "Tran Thi B"
	p := &Patient{PatientCode: "BN001", FullName: "Nguyen Van A"}
	Patch{FullName: &name}.Apply(p)
	if p.FullName != name {
		t.Errorf("expected %s, got %s", name, p.FullName)
	}
	if p.PatientCode != "BN001" {
		t.Error("expected code untouched")
	}
}
