package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_ImportRows(t *testing.T) {
	r := New()
	r.ImportRow("patient", OutcomeImported)
	r.ImportRow("patient", OutcomeImported)
	r.ImportRow("patient", OutcomeSkipped)

	if got := testutil.ToFloat64(r.importRows.WithLabelValues("patient", OutcomeImported)); got != 2 {
		t.Errorf("expected 2 imported rows, got %v", got)
	}
	if got := testutil.ToFloat64(r.importRows.WithLabelValues("patient", OutcomeSkipped)); got != 1 {
		t.Errorf("expected 1 skipped row, got %v", got)
	}
}

func TestRecorder_OverduePromoted(t *testing.T) {
	r := New()
	r.OverduePromoted(3)
	r.OverduePromoted(0)
	if got := testutil.ToFloat64(r.overduePromoted); got != 3 {
		t.Errorf("expected 3, got %v", got)
	}
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	r.ImportRow("patient", OutcomeFailed)
	r.ImportBatch("patient", true, time.Second)
	r.OverduePromoted(1)
	r.RecordCreated("patient")
	if err := r.WriteTextfile("/tmp/unused.prom"); err != nil {
		t.Errorf("expected nil recorder write to be a no-op, got %v", err)
	}
	if r.Registry() != nil {
		t.Error("expected nil registry")
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ImportBatch("medicine", true, 150*time.Millisecond)
	r.RecordCreated("visit")

	path := filepath.Join(t.TempDir(), "clinic.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`clinic_import_batches_total{kind="medicine",success="true"} 1`,
		`clinic_records_created_total{record="visit"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected textfile to contain %q", want)
		}
	}
}
