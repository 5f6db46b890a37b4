package engine

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// codeLen is the length of an ISO3 country code.
const codeLen = 3

// NormalizeCode trims and upper-cases an ISO3-like code. Casers carry state,
// so each call builds its own.
func NormalizeCode(code string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized code has ISO3 length. Aggregate
// entities such as "World" or "OWID_WRL" fail this check.
func ValidCode(code string) bool {
	return utf8.RuneCountInString(code) == codeLen
}

// normalizeHeader folds a column or attribute name for comparison.
func normalizeHeader(name string) string {
	return cases.Fold().String(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}
