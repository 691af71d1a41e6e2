package importer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mapping maps a field key to the source column header holding it.
type Mapping map[string]string

// Fold lowercases s and strips diacritics and separators, so "Ngày Sinh",
// "ngay_sinh" and "NGAY SINH" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		switch {
		case r == 'đ' || r == 'Đ':
			return 'd'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		}
		return -1
	}, out)
	return out
}

// AutoMap proposes a mapping for kind by matching each header against the
// field key, label and aliases. A header is used for at most one field and
// an exact match wins over a substring match. Unmatched fields are left out.
func AutoMap(kind Kind, headers []string) Mapping {
	folded := lo.Map(headers, func(h string, _ int) string { return Fold(h) })
	used := make(map[int]bool)
	m := make(Mapping)

	match := func(f Field, exact bool) {
		if _, done := m[f.Key]; done {
			return
		}
		keys := lo.Uniq(lo.Filter(append([]string{f.Key, f.Label}, f.Aliases...), func(s string, _ int) bool {
			return Fold(s) != ""
		}))
		for i, h := range folded {
			if used[i] || h == "" {
				continue
			}
			hit := lo.ContainsBy(keys, func(k string) bool {
				fk := Fold(k)
				if exact {
					return h == fk
				}
				return strings.Contains(h, fk)
			})
			if hit {
				m[f.Key] = headers[i]
				used[i] = true
				return
			}
		}
	}

	fields := Fields(kind)
	for _, f := range fields {
		match(f, true)
	}
	for _, f := range fields {
		match(f, false)
	}
	return m
}

// MissingRequired lists required fields of kind the mapping leaves out.
func (m Mapping) MissingRequired(kind Kind) []string {
	return lo.Filter(RequiredFields(kind), func(key string, _ int) bool {
		return strings.TrimSpace(m[key]) == ""
	})
}

// Unknown lists mapping keys that are not fields of kind.
func (m Mapping) Unknown(kind Kind) []string {
	known := lo.Map(Fields(kind), func(f Field, _ int) string { return f.Key })
	unknown, _ := lo.Difference(lo.Keys(m), known)
	sort.Strings(unknown)
	return unknown
}
