// Package format holds the pure parsing, validation and display helpers shared
// by the record services and the import pipeline. Nothing here panics or
// returns an error: failure is a false ok value or an empty string, so row
// based callers can skip a bad cell without unwinding.
package format

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultDateLayout     = "02/01/2006"
	DefaultDateTimeLayout = "02/01/2006 15:04"
	StorageDateLayout     = "2006-01-02"
)

// importDateLayouts are tried after the configured display layout. All
// slash/dash/dot forms are day-first.
var importDateLayouts = []string{
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// excelEpoch is day zero of the 1900 spreadsheet date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const maxExcelSerial = 2958465 // 9999-12-31

// DateOnly strips the clock and location from t.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses s with layout. Invalid calendar dates such as 31/02 are
// rejected.
func ParseDate(s, layout string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return DateOnly(t), true
}

// ParseImportDate parses an imported text cell as a date. The display
// layout is tried first, then the day-first fallbacks. Bare numbers are not
// dates here.
func ParseImportDate(s, layout string) (time.Time, bool) {
	if t, ok := ParseDate(s, layout); ok {
		return t, true
	}
	s = strings.TrimSpace(s)
	for _, l := range importDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// ParseSpreadsheetDate is ParseImportDate for cells read from a workbook,
// where a date cell arrives as its serial day number.
func ParseSpreadsheetDate(s, layout string) (time.Time, bool) {
	if t, ok := ParseImportDate(s, layout); ok {
		return t, true
	}
	return parseExcelSerial(strings.TrimSpace(s))
}

func parseExcelSerial(s string) (time.Time, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 1 || v > maxExcelSerial {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(v)), true
}

// FormatDate renders t with layout; the zero time renders as "".
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

// FormatDatePtr is FormatDate for optional columns.
func FormatDatePtr(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t, layout)
}

func FormatDateTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = DefaultDateTimeLayout
	}
	return t.Format(layout)
}

// ValidDateRange reports whether start <= end. Open ranges are valid.
func ValidDateRange(start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	return !start.After(*end)
}

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^0\d{9}$`),
	regexp.MustCompile(`^\+84\d{9}$`),
	regexp.MustCompile(`^84\d{9}$`),
}

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "")

// ValidPhone accepts Vietnamese mobile numbers in local (0xxxxxxxxx) and
// international (+84 / 84 followed by the nine subscriber digits) form.
// An empty value is valid because the column is optional.
func ValidPhone(phone string) bool {
	phone = phoneSeparators.Replace(strings.TrimSpace(phone))
	if phone == "" {
		return true
	}
	for _, p := range phonePatterns {
		if p.MatchString(phone) {
			return true
		}
	}
	return false
}

var nonDigits = regexp.MustCompile(`\D`)

// FormatPhone renders a local ten digit number as 0912-345-678; anything else
// is returned unchanged.
func FormatPhone(phone string) string {
	if phone == "" {
		return ""
	}
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) == 10 && strings.HasPrefix(digits, "0") {
		return digits[:4] + "-" + digits[4:7] + "-" + digits[7:]
	}
	return phone
}

var patientCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

func ValidPatientCode(code string) bool {
	if code == "" {
		return false
	}
	return patientCodePattern.MatchString(strings.ToUpper(code))
}

// ParseFloat parses a numeric cell. NaN and infinities are rejected.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsNumeric reports whether s is float-parseable. Empty input is treated as
// valid since every numeric column is optional.
func IsNumeric(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, ok := ParseFloat(s)
	return ok
}

func IsPositive(v float64) bool {
	return v > 0
}

// ParsePositiveInt parses a strictly positive whole number such as a
// prescription duration.
func ParsePositiveInt(s string) (int, bool) {
	v, ok := ParseFloat(s)
	if !ok || !IsPositive(v) || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func FormatNumber(v *float64, places int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}

var genderNames = map[string]string{
	"nam":    "Nam",
	"nữ":     "Nữ",
	"nu":     "Nữ",
	"khác":   "Khác",
	"khac":   "Khác",
	"m":      "Nam",
	"male":   "Nam",
	"f":      "Nữ",
	"female": "Nữ",
	"o":      "Khác",
	"other":  "Khác",
}

// NormalizeGender maps the accepted spellings onto Nam / Nữ / Khác and leaves
// anything unrecognised as typed.
func NormalizeGender(g string) string {
	g = strings.TrimSpace(g)
	if v, ok := genderNames[strings.ToLower(g)]; ok {
		return v
	}
	return g
}

// Truncate shortens text to maxLen runes, ending with "...".
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string([]rune(text)[:maxLen])
	}
	return string([]rune(text)[:maxLen-3]) + "..."
}

// Optional returns a pointer to the trimmed s, or nil when s is blank.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// TrimOptional trims *v and maps blank values to nil.
func TrimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	return Optional(*v)
}
