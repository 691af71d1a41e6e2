package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestReport_RecordCounts(t *testing.T) {
	r := newReport(KindPatient, "p.csv", time.Now())
	r.record(1, Imported, nil)
	r.record(2, Skipped, nil)
	r.record(3, Failed, errors.New("boom"))

	if r.Total != 3 || r.Imported != 1 || r.Skipped != 2 {
		t.Errorf("unexpected counts %d/%d/%d", r.Total, r.Imported, r.Skipped)
	}
	if len(r.Errors) != 1 || r.Errors[0] != "Row 3: boom" {
		t.Errorf("unexpected errors %v", r.Errors)
	}
	if r.BatchID == "" {
		t.Error("expected a batch id")
	}
}

func TestReport_SummaryCapsErrors(t *testing.T) {
	r := newReport(KindVisit, "v.csv", time.Now())
	for i := 1; i <= 8; i++ {
		r.record(i, Failed, fmt.Errorf("bad %d", i))
	}

	s := r.Summary(5)

	if !strings.HasPrefix(s, "Total rows: 8\nImported: 0\nSkipped: 8") {
		t.Errorf("unexpected header in %q", s)
	}
	if !strings.Contains(s, "Row 5: bad 5") || strings.Contains(s, "Row 6: bad 6") {
		t.Errorf("expected exactly five errors listed, got %q", s)
	}
	if !strings.HasSuffix(s, "... and 3 more errors") {
		t.Errorf("expected overflow line, got %q", s)
	}
}

func TestReport_ErrorPreviewUnlimited(t *testing.T) {
	r := newReport(KindVisit, "v.csv", time.Now())
	r.record(1, Failed, errors.New("x"))

	shown, more := r.ErrorPreview(-1)
	if len(shown) != 1 || more != 0 {
		t.Errorf("expected all errors, got %v and %d", shown, more)
	}
}

func TestReport_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r := newReport(KindPatient, "p.csv", start)
	if r.Duration() != 0 {
		t.Error("expected zero duration before finishing")
	}
	r.FinishedAt = start.Add(1500 * time.Millisecond)
	if r.Duration() != 1500*time.Millisecond {
		t.Errorf("unexpected duration %v", r.Duration())
	}
}
