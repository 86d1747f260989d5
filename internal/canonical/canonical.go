// Package canonical derives the comparison forms of a raw file-number
// identifier. All functions are pure; callers must re-derive forms after
// every edit rather than caching them, because the QC and duplicate logic
// downstream has to see post-edit values.
package canonical

import "strings"

// NormalizeDisplay collapses runs of whitespace (including non-breaking
// spaces) to single ASCII spaces and trims the ends. Blank input yields "".
func NormalizeDisplay(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Compact removes all whitespace. The result is only used for structural
// pattern matching and is never shown to a user.
func Compact(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}

// DedupKey is the whitespace- and hyphen-insensitive, case-folded form used
// to group equivalent records. Blank input yields "" so that blank
// identifiers are never grouped together as duplicates.
func DedupKey(raw string) string {
	key := strings.ToUpper(Compact(raw))
	return strings.ReplaceAll(key, "-", "")
}
