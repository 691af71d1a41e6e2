package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic/internal/platform/metrics"
)

// Outcome is what happened to one row.
type Outcome string

const (
	Imported Outcome = metrics.OutcomeImported
	Skipped  Outcome = metrics.OutcomeSkipped
	Failed   Outcome = metrics.OutcomeFailed
)

// Report summarises one import run. Success is false only when the whole
// batch was rejected before any row ran; Error then says why. Skipped is
// always Total - Imported and covers duplicates as well as failed rows.
type Report struct {
	BatchID    string    `json:"batch_id"`
	Kind       Kind      `json:"kind"`
	File       string    `json:"file"`
	Success    bool      `json:"success"`
	Total      int       `json:"total"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newReport(kind Kind, file string, now time.Time) *Report {
	return &Report{
		BatchID:   uuid.NewString(),
		Kind:      kind,
		File:      file,
		Success:   true,
		Errors:    []string{},
		StartedAt: now,
	}
}

// record adds one row outcome. Failed rows carry their reason; duplicates
// are skipped silently.
func (r *Report) record(index int, out Outcome, err error) {
	r.Total++
	if out == Imported {
		r.Imported++
	} else {
		r.Skipped++
	}
	if out == Failed && err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", index, err))
	}
}

func (r *Report) fail(err error) {
	r.Success = false
	r.Error = err.Error()
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrorPreview returns at most limit row errors and how many were left out.
func (r *Report) ErrorPreview(limit int) ([]string, int) {
	if limit < 0 || len(r.Errors) <= limit {
		return r.Errors, 0
	}
	return r.Errors[:limit], len(r.Errors) - limit
}

// Summary renders the report for display, listing at most limit row errors.
func (r *Report) Summary(limit int) string {
	if !r.Success {
		return "Import failed: " + r.Error
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Total rows: %d\nImported: %d\nSkipped: %d", r.Total, r.Imported, r.Skipped)
	if len(r.Errors) == 0 {
		return b.String()
	}
	shown, more := r.ErrorPreview(limit)
	fmt.Fprintf(&b, "\n\nErrors (%d rows):", len(r.Errors))
	for _, e := range shown {
		b.WriteString("\n" + e)
	}
	if more > 0 {
		fmt.Fprintf(&b, "\n... and %d more errors", more)
	}
	return b.String()
}
