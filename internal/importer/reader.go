package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Extensions accepted by the reader.
var Extensions = []string{".csv", ".xlsx", ".xls"}

var errNoHeader = errors.New("file has no header row")

// Row is one data row. Index counts data rows from 1 in file order, blank
// rows included, so messages point at the right line.
type Row struct {
	Index  int
	Values []string
}

// Table is a file's header row plus its non-blank data rows. Spreadsheet
// is set for workbooks, whose date cells hold serial day numbers.
type Table struct {
	Headers     []string
	Rows        []Row
	Spreadsheet bool
}

// Column returns the position of header, or -1.
func (t *Table) Column(header string) int {
	header = strings.TrimSpace(header)
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Value returns the trimmed cell of row r in column col, "" when out of range.
func (r Row) Value(col int) string {
	if col < 0 || col >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[col])
}

var encodings = map[string]encoding.Encoding{
	"windows-1258": charmap.Windows1258,
	"cp1258":       charmap.Windows1258,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
}

// decoderFor returns the transformer turning enc into UTF-8. A leading BOM is
// always honoured and stripped.
func decoderFor(enc string) (transform.Transformer, error) {
	enc = strings.ToLower(strings.TrimSpace(enc))
	if enc == "" || enc == "utf-8" || enc == "utf8" {
		return xunicode.BOMOverride(transform.Nop), nil
	}
	e, ok := encodings[enc]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
	return xunicode.BOMOverride(e.NewDecoder()), nil
}

// ReadTable reads the first sheet of a spreadsheet, or a CSV file decoded
// from enc, into a Table.
func ReadTable(path, enc string) (*Table, error) {
	var (
		records     [][]string
		spreadsheet = true
		err         error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path, enc)
		spreadsheet = false
	case ".xlsx":
		records, err = readXLSX(path)
	case ".xls":
		records, err = readXLS(path)
	default:
		return nil, fmt.Errorf("file type %s not supported", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	t, err := buildTable(records)
	if err != nil {
		return nil, err
	}
	t.Spreadsheet = spreadsheet
	return t, nil
}

func buildTable(records [][]string) (*Table, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, errNoHeader
	}
	t := &Table{Headers: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, Row{Index: i + 1, Values: rec})
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func openCSV(path, enc string) (*os.File, *csv.Reader, error) {
	dec, err := decoderFor(enc)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r := csv.NewReader(transform.NewReader(f, dec))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return f, r, nil
}

func readCSV(path, enc string) ([][]string, error) {
	f, r, err := openCSV(path, enc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadHeaders returns the trimmed header row of path without reading its
// data rows.
func ReadHeaders(path, enc string) ([]string, error) {
	var (
		header []string
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		header, err = csvHeader(path, enc)
	case ".xlsx":
		header, err = xlsxHeader(path)
	case ".xls":
		// The xls parser decodes the whole workbook on open.
		var records [][]string
		if records, err = readXLS(path); err == nil && len(records) > 0 {
			header = records[0]
		}
	default:
		return nil, fmt.Errorf("file type %s not supported", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if isBlank(header) {
		return nil, errNoHeader
	}
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out, nil
}

func csvHeader(path, enc string) ([]string, error) {
	f, r, err := openCSV(path, enc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := r.Read()
	if err == io.EOF {
		return nil, errNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rec, nil
}

func xlsxHeader(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoHeader
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Error(); err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
		return nil, errNoHeader
	}
	return rows.Columns(excelize.Options{RawCellValue: true})
}

// readXLSX reads raw cell values so dates arrive as serial numbers rather
// than in the workbook's display format.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoHeader
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(path string) (records [][]string, err error) {
	// The legacy parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("read xls: %v", r)
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errNoHeader
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			rec = append(rec, row.Col(c))
		}
		records = append(records, rec)
	}
	return records, nil
}
