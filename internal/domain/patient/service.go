package patient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/format"
	"github.com/clinicdesk/clinic/pkg/pagination"
)

type Service struct {
	patients Repository
	tx       db.Transactor
}

func NewService(patients Repository, tx db.Transactor) *Service {
	return &Service{patients: patients, tx: tx}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.patients.Create(ctx, p)
	})
}

// ImportPatient stores a patient read from a file. Only the identity fields
// are checked, so codes and phone numbers kept in another clinic's format
// import as given.
func (s *Service) ImportPatient(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := validateRequired(p); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.patients.Create(ctx, p)
	})
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByCode(ctx context.Context, code string) (*Patient, error) {
	return s.patients.GetByCode(ctx, strings.TrimSpace(code))
}

// UpdatePatient merges patch into the stored patient and refreshes updated_at.
func (s *Service) UpdatePatient(ctx context.Context, id int64, patch Patch) (*Patient, error) {
	var out *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		normalize(p)
		if err := validate(p); err != nil {
			return err
		}
		if err := s.patients.Update(ctx, p); err != nil {
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

// DeletePatient removes the patient with its visits and appointments. It
// reports false when no such patient exists.
func (s *Service) DeletePatient(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.patients.Delete(ctx, id)
		return err
	})
	return deleted, err
}

func (s *Service) ListPatients(ctx context.Context, page pagination.Params) (*pagination.Page[*Patient], error) {
	items, total, err := s.patients.List(ctx, page)
	if err != nil {
		return nil, err
	}
	return pagination.NewPage(items, total, page), nil
}

// SearchPatients matches keyword as a substring of name, phone or code,
// newest first. An empty keyword lists the newest patients.
func (s *Service) SearchPatients(ctx context.Context, keyword string, limit int) ([]*Patient, error) {
	return s.patients.Search(ctx, strings.TrimSpace(keyword), pagination.New(limit, 0).Limit)
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.patients.Count(ctx)
}

// GeneratePatientCode returns the code following the latest patient's,
// e.g. BN000042 after BN000041. Codes that do not carry the BN prefix
// restart the sequence at BN000001.
func (s *Service) GeneratePatientCode(ctx context.Context) (string, error) {
	latest, err := s.patients.LatestCode(ctx)
	if err != nil {
		return "", err
	}
	return nextCode(latest), nil
}

func nextCode(latest string) string {
	n := 1
	if strings.HasPrefix(latest, CodePrefix) {
		if last, err := strconv.Atoi(latest[len(CodePrefix):]); err == nil && last >= 0 {
			n = last + 1
		}
	}
	return fmt.Sprintf("%s%06d", CodePrefix, n)
}

func normalize(p *Patient) {
	p.PatientCode = strings.TrimSpace(p.PatientCode)
	p.FullName = strings.TrimSpace(p.FullName)
	p.Gender = format.TrimOptional(p.Gender)
	if p.Gender != nil {
		g := format.NormalizeGender(*p.Gender)
		p.Gender = &g
	}
	p.PhoneNumber = format.TrimOptional(p.PhoneNumber)
	p.Address = format.TrimOptional(p.Address)
	p.Notes = format.TrimOptional(p.Notes)
}

// validateRequired holds the checks every stored patient passes. Lengths
// follow the column sizes.
func validateRequired(p *Patient) error {
	if p.PatientCode == "" {
		return apperr.Validation("patient_code is required")
	}
	if utf8.RuneCountInString(p.PatientCode) > MaxCodeLength {
		return apperr.Validation("patient_code %q is longer than %d characters", p.PatientCode, MaxCodeLength)
	}
	if p.FullName == "" {
		return apperr.Validation("full_name is required")
	}
	if p.PhoneNumber != nil && utf8.RuneCountInString(*p.PhoneNumber) > MaxPhoneLength {
		return apperr.Validation("phone_number %q is longer than %d characters", *p.PhoneNumber, MaxPhoneLength)
	}
	return nil
}

// validate adds the format checks applied to patients entered by hand.
func validate(p *Patient) error {
	if err := validateRequired(p); err != nil {
		return err
	}
	if !format.ValidPatientCode(p.PatientCode) {
		return apperr.Validation("patient_code %q must be 3 to 20 letters or digits", p.PatientCode)
	}
	if p.PhoneNumber != nil && !format.ValidPhone(*p.PhoneNumber) {
		return apperr.Validation("phone_number %q is not a valid phone number", *p.PhoneNumber)
	}
	return nil
}
