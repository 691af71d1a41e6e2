package importer

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/clinicdesk/clinic/internal/platform/apperr"
	"github.com/clinicdesk/clinic/internal/platform/format"
)

// record is one row projected through the mapping. Empty cells are absent.
type record struct {
	values map[string]string
	// serialDates accepts spreadsheet day numbers in date fields.
	serialDates bool
}

// columns resolves a mapping against the table headers. Fields whose header
// is not in the file are treated as not provided.
func columns(t *Table, m Mapping) map[string]int {
	cols := make(map[string]int, len(m))
	for field, header := range m {
		if strings.TrimSpace(header) == "" {
			continue
		}
		if i := t.Column(header); i >= 0 {
			cols[field] = i
		}
	}
	return cols
}

func project(t *Table, row Row, cols map[string]int) record {
	rec := record{values: make(map[string]string, len(cols)), serialDates: t.Spreadsheet}
	for field, i := range cols {
		if v := row.Value(i); v != "" {
			rec.values[field] = v
		}
	}
	return rec
}

func (r record) has(key string) bool {
	_, ok := r.values[key]
	return ok
}

func (r record) str(key string) string {
	return r.values[key]
}

func (r record) opt(key string) *string {
	return format.Optional(r.values[key])
}

// require fails with the required keys that carry no value.
func (r record) require(keys ...string) error {
	missing := lo.Reject(keys, func(k string, _ int) bool { return r.has(k) })
	if len(missing) == 0 {
		return nil
	}
	return apperr.Validation("missing required field %s", strings.Join(missing, ", "))
}

// date parses key day-first. ok is false when the cell is absent or unparseable.
func (r record) date(key, layout string) (time.Time, bool) {
	v, present := r.values[key]
	if !present {
		return time.Time{}, false
	}
	if r.serialDates {
		return format.ParseSpreadsheetDate(v, layout)
	}
	return format.ParseImportDate(v, layout)
}

// requireDate is date for a required field, naming the bad value on failure.
func (r record) requireDate(key, layout string) (time.Time, error) {
	t, ok := r.date(key, layout)
	if !ok {
		return time.Time{}, apperr.Validation("%s %q is not a valid date", key, r.values[key])
	}
	return t, nil
}

// float parses key as a number; nil when absent or unparseable.
func (r record) float(key string) *float64 {
	v, ok := format.ParseFloat(r.values[key])
	if !ok {
		return nil
	}
	return &v
}

// joinNotes joins the present values of keys, prefixing each extra field
// with its label. The first key is the primary text and goes unlabelled.
func (r record) joinNotes(kind Kind, primary string, extras ...string) *string {
	var parts []string
	if v := r.values[primary]; v != "" {
		parts = append(parts, v)
	}
	for _, key := range extras {
		v := r.values[key]
		if v == "" {
			continue
		}
		label := key
		if f, ok := lo.Find(Fields(kind), func(f Field) bool { return f.Key == key }); ok {
			label = f.Label
		}
		parts = append(parts, label+": "+v)
	}
	return format.Optional(strings.Join(parts, "\n"))
}
