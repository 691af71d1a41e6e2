package medication

import (
	"context"
	"strings"

	"github.com/clinicdesk/clinic/internal/domain/visit"
	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/format"
)

// DefaultHistoryLimit bounds a patient's prescription history listing.
const DefaultHistoryLimit = 100

type VisitLookup interface {
	GetByID(ctx context.Context, id int64) (*visit.Visit, error)
}

type Service struct {
	medicines     MedicineRepository
	prescriptions PrescriptionRepository
	visits        VisitLookup
	tx            db.Transactor
}

func NewService(medicines MedicineRepository, prescriptions PrescriptionRepository, visits VisitLookup, tx db.Transactor) *Service {
	return &Service{medicines: medicines, prescriptions: prescriptions, visits: visits, tx: tx}
}

// -- Medicine --

// CreateMedicine stores a new active medicine.
func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	m.Active = true
	normalizeMedicine(m)
	if m.Name == "" {
		return apperr.Validation("medicine name is required")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.medicines.Create(ctx, m)
	})
}

func (s *Service) GetMedicine(ctx context.Context, id int64) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) GetMedicineByName(ctx context.Context, name string) (*Medicine, error) {
	return s.medicines.GetByName(ctx, strings.TrimSpace(name))
}

// FindActiveMedicineByName is the duplicate check used before creating a
// medicine: trimmed, case-insensitive, active rows only.
func (s *Service) FindActiveMedicineByName(ctx context.Context, name string) (*Medicine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("medicine name is required")
	}
	return s.medicines.FindActiveByName(ctx, name)
}

func (s *Service) UpdateMedicine(ctx context.Context, id int64, patch MedicinePatch) (*Medicine, error) {
	var out *Medicine
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		m, err := s.medicines.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(m)
		normalizeMedicine(m)
		if m.Name == "" {
			return apperr.Validation("medicine name is required")
		}
		if err := s.medicines.Update(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateMedicine hides a medicine from default listings while keeping
// prescriptions that reference it intact.
func (s *Service) DeactivateMedicine(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.medicines.SetActive(ctx, id, false)
		return err
	})
	return ok, err
}

func (s *Service) ReactivateMedicine(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.medicines.SetActive(ctx, id, true)
		return err
	})
	return ok, err
}

// DeleteMedicine removes the row. Prescriptions restrict the delete, which
// surfaces as a conflict.
func (s *Service) DeleteMedicine(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.medicines.Delete(ctx, id)
		return err
	})
	return deleted, err
}

func (s *Service) ListMedicines(ctx context.Context, activeOnly bool) ([]*Medicine, error) {
	return s.medicines.List(ctx, activeOnly)
}

func (s *Service) ListMedicinesByCategory(ctx context.Context, category string, activeOnly bool) ([]*Medicine, error) {
	return s.medicines.ListByCategory(ctx, strings.TrimSpace(category), activeOnly)
}

// SearchMedicines matches keyword as a substring of the name. A blank keyword
// lists everything.
func (s *Service) SearchMedicines(ctx context.Context, keyword string, activeOnly bool) ([]*Medicine, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.medicines.List(ctx, activeOnly)
	}
	return s.medicines.Search(ctx, keyword, activeOnly)
}

// -- Prescription --

func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	normalizePrescription(p)
	if err := validatePrescription(p); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.visits.GetByID(ctx, p.VisitID); err != nil {
			return err
		}
		if _, err := s.medicines.GetByID(ctx, p.MedicineID); err != nil {
			return err
		}
		return s.prescriptions.Create(ctx, p)
	})
}

func (s *Service) GetPrescription(ctx context.Context, id int64) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) UpdatePrescription(ctx context.Context, id int64, patch PrescriptionPatch) (*Prescription, error) {
	var out *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		normalizePrescription(p)
		if err := validatePrescription(p); err != nil {
			return err
		}
		if patch.MedicineID != nil {
			if _, err := s.medicines.GetByID(ctx, p.MedicineID); err != nil {
				return err
			}
		}
		if err := s.prescriptions.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeletePrescription(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.prescriptions.Delete(ctx, id)
		return err
	})
	return deleted, err
}

func (s *Service) ListVisitPrescriptions(ctx context.Context, visitID int64) ([]*Prescription, error) {
	return s.prescriptions.ListByVisit(ctx, visitID)
}

// ListPatientPrescriptions returns a patient's prescriptions, newest visit first.
func (s *Service) ListPatientPrescriptions(ctx context.Context, patientID int64, limit int) ([]*PatientPrescription, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.prescriptions.ListByPatient(ctx, patientID, limit)
}

func normalizeMedicine(m *Medicine) {
	m.Name = strings.TrimSpace(m.Name)
	m.Category = format.TrimOptional(m.Category)
	m.Unit = format.TrimOptional(m.Unit)
	m.Description = format.TrimOptional(m.Description)
}

func normalizePrescription(p *Prescription) {
	p.Dosage = format.TrimOptional(p.Dosage)
	p.Frequency = format.TrimOptional(p.Frequency)
	p.Notes = format.TrimOptional(p.Notes)
}

func validatePrescription(p *Prescription) error {
	if p.VisitID == 0 {
		return apperr.Validation("visit_id is required")
	}
	if p.MedicineID == 0 {
		return apperr.Validation("medicine_id is required")
	}
	if p.DurationDays != nil && *p.DurationDays <= 0 {
		return apperr.Validation("duration_days must be positive, got %d", *p.DurationDays)
	}
	return nil
}
