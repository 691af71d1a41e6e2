package lab

import (
	"time"
)

// TestType maps to the test_types table.
type TestType struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Category       *string   `db:"category" json:"category,omitempty"`
	Unit           *string   `db:"unit" json:"unit,omitempty"`
	NormalRangeMin *float64  `db:"normal_range_min" json:"normal_range_min,omitempty"`
	NormalRangeMax *float64  `db:"normal_range_max" json:"normal_range_max,omitempty"`
	Description    *string   `db:"description" json:"description,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RangeStatus places a numeric result against a test type's normal range.
type RangeStatus string

const (
	RangeUnknown RangeStatus = "unknown"
	RangeLow     RangeStatus = "low"
	RangeNormal  RangeStatus = "normal"
	RangeHigh    RangeStatus = "high"
)

// Classify compares value with the normal range. A missing bound is not
// checked; with neither bound the result is RangeUnknown.
func (t *TestType) Classify(value float64) RangeStatus {
	if t.NormalRangeMin == nil && t.NormalRangeMax == nil {
		return RangeUnknown
	}
	if t.NormalRangeMin != nil && value < *t.NormalRangeMin {
		return RangeLow
	}
	if t.NormalRangeMax != nil && value > *t.NormalRangeMax {
		return RangeHigh
	}
	return RangeNormal
}

// TestTypePatch lists the fields an update may change.
type TestTypePatch struct {
	Name           *string
	Category       *string
	Unit           *string
	NormalRangeMin *float64
	NormalRangeMax *float64
	Description    *string
}

func (u TestTypePatch) Apply(t *TestType) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Category != nil {
		t.Category = u.Category
	}
	if u.Unit != nil {
		t.Unit = u.Unit
	}
	if u.NormalRangeMin != nil {
		t.NormalRangeMin = u.NormalRangeMin
	}
	if u.NormalRangeMax != nil {
		t.NormalRangeMax = u.NormalRangeMax
	}
	if u.Description != nil {
		t.Description = u.Description
	}
}

// TestResult maps to the test_results table. Either ResultValue or
// ResultText carries the reading; both may be present.
type TestResult struct {
	ID          int64     `db:"id" json:"id"`
	VisitID     int64     `db:"visit_id" json:"visit_id"`
	TestTypeID  int64     `db:"test_type_id" json:"test_type_id"`
	ResultValue *float64  `db:"result_value" json:"result_value,omitempty"`
	ResultText  *string   `db:"result_text" json:"result_text,omitempty"`
	Unit        *string   `db:"unit" json:"unit,omitempty"`
	TestDate    time.Time `db:"test_date" json:"test_date"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type TestResultPatch struct {
	ResultValue *float64
	ResultText  *string
	Unit        *string
	TestDate    *time.Time
	Notes       *string
}

func (u TestResultPatch) Apply(r *TestResult) {
	if u.ResultValue != nil {
		r.ResultValue = u.ResultValue
	}
	if u.ResultText != nil {
		r.ResultText = u.ResultText
	}
	if u.Unit != nil {
		r.Unit = u.Unit
	}
	if u.TestDate != nil {
		r.TestDate = *u.TestDate
	}
	if u.Notes != nil {
		r.Notes = u.Notes
	}
}

// TimelinePoint is one reading of a single test for a patient, oldest first
// when returned by a timeline query.
type TimelinePoint struct {
	ResultID int64     `json:"result_id"`
	VisitID  int64     `json:"visit_id"`
	Date     time.Time `json:"date"`
	Value    *float64  `json:"value,omitempty"`
	Text     *string   `json:"text,omitempty"`
	Unit     *string   `json:"unit,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
}

// LatestResult is the most recent reading of one test type for a patient,
// joined with the test type's range.
type LatestResult struct {
	TestTypeID int64       `json:"test_type_id"`
	TestName   string      `json:"test_name"`
	Category   *string     `json:"category,omitempty"`
	Date       time.Time   `json:"date"`
	Value      *float64    `json:"value,omitempty"`
	Text       *string     `json:"text,omitempty"`
	Unit       *string     `json:"unit,omitempty"`
	NormalMin  *float64    `json:"normal_min,omitempty"`
	NormalMax  *float64    `json:"normal_max,omitempty"`
	Status     RangeStatus `json:"status"`
}
