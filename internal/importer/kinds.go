// Package importer loads CSV and Excel files into the record store, one
// independent transaction per row, and reports per-row outcomes.
package importer

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Kind is the record type a file is imported as.
type Kind string

const (
	KindPatient    Kind = "patient"
	KindMedicine   Kind = "medicine"
	KindTestType   Kind = "test_type"
	KindVisit      Kind = "visit"
	KindTestResult Kind = "test_result"
)

// Kinds lists every importable kind in menu order.
var Kinds = []Kind{KindPatient, KindMedicine, KindTestType, KindVisit, KindTestResult}

// ParseKind accepts the kind name, also in plural form ("patients").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if s == string(k) || s == string(k)+"s" {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown import kind %q", s)
}

func (k Kind) Valid() bool {
	return lo.Contains(Kinds, k)
}

// Field describes one importable column of a kind.
type Field struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Aliases  []string `json:"aliases,omitempty"`
}

// Field keys shared across kinds.
const (
	FieldPatientCode    = "patient_code"
	FieldFullName       = "full_name"
	FieldDateOfBirth    = "date_of_birth"
	FieldGender         = "gender"
	FieldPhoneNumber    = "phone_number"
	FieldAddress        = "address"
	FieldEmail          = "email"
	FieldBloodType      = "blood_type"
	FieldAllergies      = "allergies"
	FieldMedicalHistory = "medical_history"
	FieldNotes          = "notes"

	FieldName        = "name"
	FieldCategory    = "category"
	FieldUnit        = "unit"
	FieldDescription = "description"
	FieldRangeMin    = "normal_range_min"
	FieldRangeMax    = "normal_range_max"

	FieldVisitDate  = "visit_date"
	FieldSymptoms   = "symptoms"
	FieldDiagnosis  = "diagnosis"
	FieldConclusion = "conclusion"

	FieldTestTypeName = "test_type_name"
	FieldTestDate     = "test_date"
	FieldResultValue  = "result_value"
	FieldResultText   = "result_text"
)

var fieldsByKind = map[Kind][]Field{
	KindPatient: {
		{Key: FieldPatientCode, Label: "Mã Bệnh Nhân", Required: true, Aliases: []string{"ma bn", "code", "mabn"}},
		{Key: FieldFullName, Label: "Họ Tên", Required: true, Aliases: []string{"ho va ten", "name", "ten"}},
		{Key: FieldDateOfBirth, Label: "Ngày Sinh", Aliases: []string{"dob", "birth", "ns"}},
		{Key: FieldGender, Label: "Giới Tính", Aliases: []string{"sex", "gioi"}},
		{Key: FieldPhoneNumber, Label: "Số Điện Thoại", Aliases: []string{"phone", "sdt", "dien thoai", "tel", "mobile"}},
		{Key: FieldAddress, Label: "Địa Chỉ", Aliases: []string{"addr", "dia chi"}},
		{Key: FieldEmail, Label: "Email", Aliases: []string{"mail"}},
		{Key: FieldBloodType, Label: "Nhóm Máu", Aliases: []string{"blood"}},
		{Key: FieldAllergies, Label: "Dị Ứng", Aliases: []string{"allergy"}},
		{Key: FieldMedicalHistory, Label: "Tiền Sử Bệnh", Aliases: []string{"history", "tien su"}},
		{Key: FieldNotes, Label: "Ghi Chú", Aliases: []string{"note"}},
	},
	KindMedicine: {
		{Key: FieldName, Label: "Tên Thuốc", Required: true, Aliases: []string{"medicine", "drug", "thuoc"}},
		{Key: FieldCategory, Label: "Phân Loại", Aliases: []string{"loai", "group"}},
		{Key: FieldUnit, Label: "Đơn Vị", Aliases: []string{"dvt"}},
		{Key: FieldDescription, Label: "Hướng Dẫn Sử Dụng", Aliases: []string{"usage", "huong dan", "mo ta"}},
		{Key: FieldNotes, Label: "Ghi Chú", Aliases: []string{"note"}},
	},
	KindTestType: {
		{Key: FieldName, Label: "Tên Xét Nghiệm", Required: true, Aliases: []string{"test", "xet nghiem"}},
		{Key: FieldUnit, Label: "Đơn Vị", Required: true, Aliases: []string{"dvt"}},
		{Key: FieldCategory, Label: "Nhóm", Aliases: []string{"phan loai", "group"}},
		{Key: FieldRangeMin, Label: "Giới Hạn Dưới", Aliases: []string{"min", "low"}},
		{Key: FieldRangeMax, Label: "Giới Hạn Trên", Aliases: []string{"max", "high"}},
		{Key: FieldDescription, Label: "Mô Tả", Aliases: []string{"ghi chu", "notes"}},
	},
	KindVisit: {
		{Key: FieldPatientCode, Label: "Mã Bệnh Nhân", Required: true, Aliases: []string{"ma bn", "code", "mabn"}},
		{Key: FieldVisitDate, Label: "Ngày Khám", Required: true, Aliases: []string{"date", "ngay"}},
		{Key: FieldSymptoms, Label: "Triệu Chứng", Aliases: []string{"symptom"}},
		{Key: FieldDiagnosis, Label: "Chẩn Đoán", Aliases: []string{"chan doan"}},
		{Key: FieldConclusion, Label: "Kết Luận", Aliases: []string{"ket luan"}},
		{Key: FieldNotes, Label: "Ghi Chú", Aliases: []string{"note"}},
	},
	KindTestResult: {
		{Key: FieldPatientCode, Label: "Mã Bệnh Nhân", Required: true, Aliases: []string{"ma bn", "code", "mabn"}},
		{Key: FieldTestTypeName, Label: "Tên Loại XN", Required: true, Aliases: []string{"test type", "testtype", "xet nghiem"}},
		{Key: FieldTestDate, Label: "Ngày Xét Nghiệm", Required: true, Aliases: []string{"ngay xn", "date", "ngay"}},
		{Key: FieldResultValue, Label: "Kết Quả Số", Aliases: []string{"value", "ket qua"}},
		{Key: FieldResultText, Label: "Kết Quả Text", Aliases: []string{"text", "dinh tinh"}},
		{Key: FieldUnit, Label: "Đơn Vị", Aliases: []string{"dvt"}},
		{Key: FieldNotes, Label: "Ghi Chú", Aliases: []string{"note"}},
	},
}

// Fields returns the importable fields of kind, required ones flagged.
func Fields(kind Kind) []Field {
	return fieldsByKind[kind]
}

// RequiredFields returns the keys that must carry a value on every row.
func RequiredFields(kind Kind) []string {
	return lo.FilterMap(fieldsByKind[kind], func(f Field, _ int) (string, bool) {
		return f.Key, f.Required
	})
}

// Options tunes one import run.
type Options struct {
	// SkipDuplicates skips rows whose business key already exists.
	SkipDuplicates bool `json:"skip_duplicates"`

	// CreateMissingTestTypes lets a test result row create an unknown test
	// type instead of failing.
	CreateMissingTestTypes bool `json:"create_missing_test_types"`

	// Encoding names the CSV character set. Empty means UTF-8.
	Encoding string `json:"encoding,omitempty"`
}

// DefaultOptions skips duplicates for the kinds that carry a business key.
func DefaultOptions(kind Kind) Options {
	switch kind {
	case KindPatient, KindMedicine, KindTestType:
		return Options{SkipDuplicates: true}
	}
	return Options{}
}
