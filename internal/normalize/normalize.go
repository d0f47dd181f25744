// Package normalize holds the pure field-cleaning functions applied to every
// raw value before it reaches identity resolution or the store.
//
// Every function is total: any input, including the empty string, yields a
// defined result. None of them touch the store or retain state.
package normalize

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Trim strips leading and trailing whitespace and applies Unicode NFC
// normalization so visually identical identifiers compare equal.
func Trim(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// StripLeadingZeros removes leading '0' characters from an identifier.
// An all-zero input maps to "0", never to the empty string.
func StripLeadingZeros(s string) string {
	if s == "" {
		return s
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// CleanLotCode canonicalizes a lot code: Trim then StripLeadingZeros.
// "00LOT123" becomes "LOT123"; "000" becomes "0"; whitespace-only input
// becomes the empty string, which callers treat as a missing identity.
func CleanLotCode(s string) string {
	t := Trim(s)
	if t == "" {
		return ""
	}
	return StripLeadingZeros(t)
}

// dateLayouts are the generic fallback layouts tried after the ISO and
// month-first slash forms fail. Order matters: first parse wins. The
// day-first slash layout only engages when the month-first read already
// failed, e.g. "25/12/2026".
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2/1/2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
}

// CanonicalDate parses a raw date value into canonical ISO YYYY-MM-DD form.
// ISO input passes through unchanged. Slash-separated dates are always read
// month-first (MM/DD/YYYY); dates where both components are <= 12 are
// therefore ambiguous and resolve to the month-first reading. Values that
// fail both parses fall through a small list of generic layouts. Returns
// ok=false when nothing matches.
func CanonicalDate(s string) (string, bool) {
	v := Trim(s)
	if v == "" {
		return "", false
	}

	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.Format("2006-01-02"), true
	}
	if strings.Contains(v, "/") {
		if t, err := time.Parse("1/2/2006", v); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// truthy and falsy are the accepted spellings, compared case-insensitively.
var (
	truthy = map[string]bool{"yes": true, "y": true, "true": true, "pass": true, "1": true}
	falsy  = map[string]bool{"no": true, "n": true, "false": true, "fail": true, "0": true}
)

// ToBool maps common yes/no spellings to a bool. Unrecognized input yields
// the supplied default.
func ToBool(s string, def bool) bool {
	v := strings.ToLower(Trim(s))
	if truthy[v] {
		return true
	}
	if falsy[v] {
		return false
	}
	return def
}

// ToInt parses the leading integer portion of a value. "95 units" yields 95.
// Input with no leading integer yields the supplied default.
func ToInt(s string, def int) int {
	v := Trim(s)
	if v == "" {
		return def
	}

	end := 0
	if v[0] == '-' || v[0] == '+' {
		end = 1
	}
	for end < len(v) && unicode.IsDigit(rune(v[end])) {
		end++
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return def
	}
	return n
}
