package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// numberRegexp captures the first number token, separators included
	numberRegexp = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	// ratingShape is the accepted rating form after normalisation
	ratingShape = regexp.MustCompile(`^\d(?:\.\d)?$`)
	// countRegexp captures an integer with optional thousands separators
	countRegexp = regexp.MustCompile(`\d{1,3}(?:[,.\s\x{00a0}\x{202f}]\d{3})+|\d+`)
)

// MaxRating is the top of the rating scale.
const MaxRating = 5

// ParseRating reads a business rating such as "4.6", "4,6 stars" or
// "Rated 4.5 out of 5". The value must have the shape d or d.d and lie
// within [0, 5].
func ParseRating(raw string) (float64, bool) {
	tok := numberRegexp.FindString(raw)
	if tok == "" {
		return 0, false
	}
	tok = strings.ReplaceAll(tok, ",", ".")
	if !ratingShape.MatchString(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || v < 0 || v > MaxRating {
		return 0, false
	}
	return v, true
}

// ParseStars reads a per-review star rating ("4 stars", "5,0") as an
// integer in [1, 5].
func ParseStars(raw string) (int, bool) {
	v, ok := ParseRating(raw)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	n := int(v)
	if n < 1 {
		return 0, false
	}
	return n, true
}

// ParseCount reads a count shown with locale separators, e.g.
// "1,234 reviews", "(1.234)" or "12 345". Digits that belong to a decimal
// ("4.6") or to an abbreviated figure ("1.5K") are not counts and are
// passed over.
func ParseCount(raw string) (int, bool) {
	for _, loc := range countRegexp.FindAllStringIndex(raw, -1) {
		start, end := loc[0], loc[1]
		if inDecimal(raw, start, end) || hasMagnitudeSuffix(raw[end:]) {
			continue
		}
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, raw[start:end])
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// inDecimal reports whether raw[start:end] is joined to a fraction or an
// integer part by a decimal mark.
func inDecimal(raw string, start, end int) bool {
	if end+1 < len(raw) && isDecimalMark(raw[end]) && isASCIIDigit(raw[end+1]) {
		return true
	}
	return start >= 2 && isDecimalMark(raw[start-1]) && isASCIIDigit(raw[start-2])
}

// hasMagnitudeSuffix reports whether rest starts with a thousands or
// millions abbreviation such as "K", "k" or "M".
func hasMagnitudeSuffix(rest string) bool {
	rest = strings.TrimLeft(rest, " \u00a0")
	r, size := utf8.DecodeRuneInString(rest)
	switch r {
	case 'K', 'k', 'M', 'm', 'B':
	default:
		return false
	}
	next, _ := utf8.DecodeRuneInString(rest[size:])
	return !unicode.IsLetter(next)
}

func isDecimalMark(b byte) bool { return b == '.' || b == ',' }

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

// ParseText collapses whitespace and rejects empty values.
func ParseText(raw string) (string, bool) {
	s := normaliseText(raw)
	return s, s != ""
}

// ParseFirstLine keeps the first non-empty line, as reviewer blocks often
// append "Local Guide · 12 reviews" on the following lines.
func ParseFirstLine(raw string) (string, bool) {
	for _, line := range strings.Split(raw, "\n") {
		if s := normaliseText(line); s != "" {
			return s, true
		}
	}
	return "", false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
