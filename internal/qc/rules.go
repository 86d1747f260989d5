package qc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joelkehle/registry-intake/internal/canonical"
)

// Structural shapes are matched against the whitespace-compacted form.
// PREFIX is one or more hyphen-joined uppercase letter groups, followed by a
// year segment, a numeric segment, and an optional parenthetical suffix.
var (
	// PREFIX-YYYY-0*N(SUFFIX)?: the numeric segment has leading zeros before
	// a nonzero-bearing remainder.
	paddingRe = regexp.MustCompile(`^([A-Z]+(?:-[A-Z]+)*)-(\d{4})-0+(\d*[1-9]\d*)(\([^)]*\))?$`)

	// PREFIX-YY-N(SUFFIX)?: exactly two year digits. Structurally disjoint
	// from paddingRe because of the differing digit count.
	yearRe = regexp.MustCompile(`^([A-Z]+(?:-[A-Z]+)*)-(\d{2})-(\d+)(\([^)]*\))?$`)

	// Trailing parenthetical suffix on the display form, stripped only for
	// the spacing check.
	trailingParenRe = regexp.MustCompile(`\s*\([^)]*\)$`)
)

// splitTempSuffix reports whether the trimmed display value ends in one of
// the recognized temporary-suffix spellings: "(T)", "(TEMP)", a bare trailing
// "TEMP", or a single trailing letter "T", and returns the value with the
// suffix removed. The bare spellings must start on a token boundary; this
// guards against identifiers that merely end in those letters as part of a
// real token (LOT, CONTEMP).
func splitTempSuffix(value string) (string, bool) {
	upper := strings.ToUpper(value)
	switch {
	case strings.HasSuffix(upper, "(TEMP)"):
		return value[:len(value)-len("(TEMP)")], true
	case strings.HasSuffix(upper, "(T)"):
		return value[:len(value)-len("(T)")], true
	case strings.HasSuffix(upper, "TEMP"):
		if tokenBoundaryBefore(value, len(value)-len("TEMP")) {
			return value[:len(value)-len("TEMP")], true
		}
	case strings.HasSuffix(upper, "T"):
		if tokenBoundaryBefore(value, len(value)-1) {
			return value[:len(value)-1], true
		}
	}
	return "", false
}

// tokenBoundaryBefore reports whether position i starts a new token: start of
// string, or preceded by any non-letter rune. Digits, whitespace, hyphens and
// parentheses all count as boundaries.
func tokenBoundaryBefore(value string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(value[:i])
	return !unicode.IsLetter(r)
}

// NormalizeTempSuffix rewrites any recognized temporary-suffix spelling to
// the canonical "BASE (TEMP)" form. Values without a recognized suffix come
// back display-normalized but otherwise untouched. Every suggested fix the
// detectors produce is funneled through here so that fixing one defect never
// reintroduces a malformed temp suffix.
func NormalizeTempSuffix(value string) string {
	v := canonical.NormalizeDisplay(value)
	base, ok := splitTempSuffix(v)
	if !ok {
		return v
	}
	base = strings.TrimSpace(strings.TrimRight(base, " -"))
	if base == "" {
		return v
	}
	return base + " (TEMP)"
}

func detectPadding(compact string) (string, bool) {
	m := paddingRe.FindStringSubmatch(compact)
	if m == nil {
		return "", false
	}
	return NormalizeTempSuffix(m[1] + "-" + m[2] + "-" + m[3] + m[4]), true
}

func detectYear(compact string) (string, bool) {
	m := yearRe.FindStringSubmatch(compact)
	if m == nil {
		return "", false
	}
	yy, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	century := "20"
	if yy >= 50 {
		century = "19"
	}
	return NormalizeTempSuffix(m[1] + "-" + century + m[2] + "-" + m[3] + m[4]), true
}

// detectSpacing triggers when the display form still contains internal
// whitespace after the trailing parenthetical suffix is set aside.
func detectSpacing(display, compact string) (string, bool) {
	head := trailingParenRe.ReplaceAllString(display, "")
	if !strings.Contains(head, " ") {
		return "", false
	}
	return NormalizeTempSuffix(compact), true
}

func detectTemp(display string) (string, bool) {
	if _, ok := splitTempSuffix(display); !ok {
		return "", false
	}
	norm := NormalizeTempSuffix(display)
	if norm == display {
		return "", false
	}
	return norm, true
}

// scanValue runs all four detectors over one identifier. Detectors are
// independent and do not short-circuit each other.
func scanValue(index int, raw string) []Issue {
	display := canonical.NormalizeDisplay(raw)
	if display == "" {
		return nil
	}
	compact := canonical.Compact(raw)

	var issues []Issue
	if fix, ok := detectPadding(compact); ok {
		issues = append(issues, Issue{
			RecordIndex:  index,
			FileNumber:   display,
			Type:         IssuePadding,
			Description:  "numeric segment has leading zeros",
			SuggestedFix: fix,
			AutoFixable:  true,
			Severity:     SeverityMedium,
		})
	}
	if fix, ok := detectYear(compact); ok {
		yy := yearRe.FindStringSubmatch(compact)[2]
		issues = append(issues, Issue{
			RecordIndex:  index,
			FileNumber:   display,
			Type:         IssueYear,
			Description:  fmt.Sprintf("two-digit year %q should be four digits", yy),
			SuggestedFix: fix,
			AutoFixable:  true,
			Severity:     SeverityHigh,
		})
	}
	if fix, ok := detectSpacing(display, compact); ok {
		issues = append(issues, Issue{
			RecordIndex:  index,
			FileNumber:   display,
			Type:         IssueSpacing,
			Description:  "identifier contains internal whitespace",
			SuggestedFix: fix,
			AutoFixable:  true,
			Severity:     SeverityMedium,
		})
	}
	if fix, ok := detectTemp(display); ok {
		issues = append(issues, Issue{
			RecordIndex:  index,
			FileNumber:   display,
			Type:         IssueTemp,
			Description:  "non-standard temporary suffix",
			SuggestedFix: fix,
			AutoFixable:  true,
			Severity:     SeverityLow,
		})
	}
	return issues
}
