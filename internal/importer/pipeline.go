package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/format"
	"github.com/clinicdesk/clinic/internal/platform/metrics"
)

// DefaultMaxRows caps the data rows of a single file.
const DefaultMaxRows = 10000

// Config holds the pipeline limits and the display date layout tried first
// when parsing date cells.
type Config struct {
	MaxRows    int
	DateLayout string
}

// Pipeline imports files through the record services.
type Pipeline struct {
	stores  Stores
	tx      db.Transactor
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func New(stores Stores, tx db.Transactor, cfg Config) *Pipeline {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = format.DefaultDateLayout
	}
	return &Pipeline{
		stores: stores,
		tx:     tx,
		cfg:    cfg,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// WithLogger returns p logging batch progress to logger.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// WithMetrics returns p counting rows and batches in rec.
func (p *Pipeline) WithMetrics(rec *metrics.Recorder) *Pipeline {
	p.metrics = rec
	return p
}

// Import loads the file at path as kind. Columns are taken from mapping
// (field key to header). Every row runs in its own transaction and a failing
// row never stops the batch. A precondition failure rejects the whole file
// before any row runs and is reported through Report.Success and Report.Error.
func (p *Pipeline) Import(ctx context.Context, path string, kind Kind, mapping Mapping, opts Options) *Report {
	rep := newReport(kind, path, p.now())
	log := p.logger.With().Str("batch_id", rep.BatchID).Str("kind", string(kind)).Str("file", filepath.Base(path)).Logger()

	table, err := p.load(path, kind, opts)
	if err != nil {
		rep.fail(err)
		rep.FinishedAt = p.now()
		p.metrics.ImportBatch(string(kind), false, rep.Duration())
		log.Warn().Err(err).Msg("import rejected")
		return rep
	}

	if unknown := mapping.Unknown(kind); len(unknown) > 0 {
		log.Warn().Strs("fields", unknown).Msg("ignoring unknown mapping fields")
	}
	cols := columns(table, mapping)
	log.Info().Int("rows", len(table.Rows)).Strs("fields", lo.Keys(cols)).Msg("import started")

	for _, row := range table.Rows {
		out, err := p.importRow(ctx, kind, project(table, row, cols), opts)
		if err != nil {
			out = Failed
			log.Debug().Int("row", row.Index).Err(err).Msg("import row failed")
		}
		rep.record(row.Index, out, err)
		p.metrics.ImportRow(string(kind), string(out))
		if out == Imported {
			p.metrics.RecordCreated(string(kind))
		}
	}

	rep.FinishedAt = p.now()
	p.metrics.ImportBatch(string(kind), true, rep.Duration())
	log.Info().
		Int("total", rep.Total).
		Int("imported", rep.Imported).
		Int("skipped", rep.Skipped).
		Int("errors", len(rep.Errors)).
		Dur("elapsed", rep.Duration()).
		Msg("import finished")
	return rep
}

// Validate runs the batch preconditions alone and describes the file.
func (p *Pipeline) Validate(path string, opts Options) (*FileInfo, error) {
	table, err := p.checkFile(path, opts)
	if err != nil {
		return nil, err
	}
	return describe(table), nil
}

func (p *Pipeline) load(path string, kind Kind, opts Options) (*Table, error) {
	if !kind.Valid() {
		return nil, apperr.Batch("unknown import kind %q", kind)
	}
	return p.checkFile(path, opts)
}

func (p *Pipeline) checkFile(path string, opts Options) (*Table, error) {
	table, err := readChecked(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) > p.cfg.MaxRows {
		return nil, apperr.Batch("file too large: %d rows (max %d)", len(table.Rows), p.cfg.MaxRows)
	}
	return table, nil
}

// readChecked applies the extension and existence checks before reading.
func readChecked(path, enc string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !lo.Contains(Extensions, ext) {
		return nil, apperr.Batch("file type %s not supported", ext)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, apperr.Batch("file %s does not exist", path)
	}
	table, err := ReadTable(path, enc)
	if err != nil {
		return nil, apperr.Batch("cannot read file: %v", err)
	}
	return table, nil
}

// importRow runs one row in its own transaction. A nil error with Skipped
// means a duplicate.
func (p *Pipeline) importRow(ctx context.Context, kind Kind, rec record, opts Options) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Failed, fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	err = p.tx.InTx(ctx, func(ctx context.Context) error {
		var rowErr error
		switch kind {
		case KindPatient:
			out, rowErr = p.importPatient(ctx, rec, opts)
		case KindMedicine:
			out, rowErr = p.importMedicine(ctx, rec, opts)
		case KindTestType:
			out, rowErr = p.importTestType(ctx, rec, opts)
		case KindVisit:
			out, rowErr = p.importVisit(ctx, rec)
		case KindTestResult:
			out, rowErr = p.importTestResult(ctx, rec, opts)
		default:
			rowErr = apperr.Batch("unknown import kind %q", kind)
		}
		return rowErr
	})
	if err != nil {
		return Failed, err
	}
	return out, nil
}
