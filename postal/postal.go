// Package postal normalizes and classifies postal codes.
//
// All functions are pure: no I/O, no state. The canonical form produced here
// is the sole search key used by the index, so normalization must agree
// exactly between the preprocessor and the lookup engine.
package postal

import (
	"regexp"
	"strings"
)

// Country identifies a supported postal-code system.
//
// The set is closed: adding a country means adding a variant here plus its
// shape rules below, not widening a string-keyed branch somewhere else.
type Country string

const (
	// Unknown is the zero Country. It matches no shape rules.
	Unknown Country = ""
	// US is the United States (ZIP and ZIP+4).
	US Country = "US"
	// CA is Canada (forward sortation area + local delivery unit).
	CA Country = "CA"
)

// Supported returns the closed set of supported countries, in a fixed order.
func Supported() []Country {
	return []Country{US, CA}
}

var (
	// usPattern matches 5 digits with an optional -4 extension.
	usPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	// caPattern matches letter digit letter, optional whitespace, digit
	// letter digit, case-insensitively. The two capture groups are the
	// triplets that form the canonical 6-character code.
	caPattern = regexp.MustCompile(`^(?i)([A-Z]\d[A-Z])\s*(\d[A-Z]\d)$`)
)

// ParseCountry maps a raw country token to a Country, case-insensitively.
func ParseCountry(s string) (Country, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "US":
		return US, true
	case "CA":
		return CA, true
	default:
		return Unknown, false
	}
}

// DetectCountry classifies raw against the country shape rules.
//
// The Canadian shape requires a leading letter and the US shape is all
// digits, so the two cannot overlap; CA is still checked first so the
// precedence is explicit. Empty or whitespace-only input detects nothing.
func DetectCountry(raw string) (Country, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unknown, false
	}
	if caPattern.MatchString(raw) {
		return CA, true
	}
	if usPattern.MatchString(raw) {
		return US, true
	}
	return Unknown, false
}

// Normalize canonicalizes raw for the given country.
//
//   - US: the -XXXX extension is stripped; the result is exactly 5 digits.
//   - CA: whitespace between the triplets is removed and both are
//     uppercased, yielding a 6-character code with no separator.
//
// The country token itself is compared case-insensitively, so Country("us")
// behaves like US. Unsupported countries and empty input normalize to
// nothing.
func Normalize(raw string, country Country) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	switch Country(strings.ToUpper(string(country))) {
	case US:
		m := usPattern.FindStringSubmatch(raw)
		if m == nil {
			return "", false
		}
		return raw[:5], true
	case CA:
		m := caPattern.FindStringSubmatch(raw)
		if m == nil {
			return "", false
		}
		return strings.ToUpper(m[1] + m[2]), true
	default:
		return "", false
	}
}

// NormalizeAny detects the country from the code's shape, then normalizes.
// It fails if either step fails.
func NormalizeAny(raw string) (string, Country, bool) {
	country, ok := DetectCountry(raw)
	if !ok {
		return "", Unknown, false
	}
	code, ok := Normalize(raw, country)
	if !ok {
		return "", Unknown, false
	}
	return code, country, true
}

// IsValid reports whether raw normalizes successfully for the given country.
func IsValid(raw string, country Country) bool {
	_, ok := Normalize(raw, country)
	return ok
}

// IsValidAny reports whether raw normalizes successfully for any supported
// country.
func IsValidAny(raw string) bool {
	_, _, ok := NormalizeAny(raw)
	return ok
}
