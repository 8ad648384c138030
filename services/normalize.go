package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	groupedDots   = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	groupedCommas = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	codeSeparator = regexp.MustCompile(`[._\-]`)
)

// CleanText collapses embedded newlines and whitespace runs into single
// spaces and trims the result. Spreadsheet cells routinely wrap long
// descriptions across lines.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// NormalizeCode uppercases a code cell and strips inner whitespace, keeping
// separators intact.
func NormalizeCode(s string) string {
	s = CleanText(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// foldAccents removes diacritics so "quantità" and "quantita" compare equal.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeLabel lowercases, folds accents and collapses whitespace. Used
// for header token matching, description similarity and company dedupe keys.
func NormalizeLabel(s string) string {
	return strings.ToLower(foldAccents(CleanText(s)))
}

// ParseNumber parses a numeric cell in either Italian ("1.234,56") or
// English ("1,234.56") notation, tolerating currency symbols, spaces and
// embedded newlines. Returns false when the cell holds no number.
func ParseNumber(s string) (float64, bool) {
	s = CleanText(s)
	if s == "" {
		return 0, false
	}

	// Strip currency markers and spacer characters.
	s = strings.NewReplacer("€", "", "EUR", "", "eur", "", " ", "", " ", "").Replace(s)

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		// The rightmost separator is the decimal mark.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if groupedCommas.MatchString(s) && strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	case hasDot:
		if groupedDots.MatchString(s) && strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// NormalizeCompany builds the case/whitespace-insensitive dedupe key for a
// company label.
func NormalizeCompany(name string) string {
	return NormalizeLabel(name)
}

// splitCodeHead returns the code segment before the first separator.
func splitCodeHead(code string) string {
	parts := codeSeparator.Split(code, 2)
	return parts[0]
}

// splitCodeTail returns the code segment after the last separator, or ""
// when the code has none.
func splitCodeTail(code string) string {
	parts := codeSeparator.Split(code, -1)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}
