// Package qc detects formatting defects in file-number identifiers and
// proposes deterministic corrections. Detection never mutates records and
// never fails on malformed input: blank identifiers simply produce no issues.
package qc

// Record is one imported row, as delivered by the upload/parsing layer.
type Record = map[string]string

// DefaultField is the record key holding the file-number identifier.
const DefaultField = "file_number"

// Engine runs the four formatting detectors over a batch of records.
// It owns no state; every scan is a pure function of its input.
type Engine struct {
	// Field is the record key to scan. Empty means DefaultField.
	Field string
}

func NewEngine() *Engine {
	return &Engine{Field: DefaultField}
}

func (e *Engine) field() string {
	if e.Field == "" {
		return DefaultField
	}
	return e.Field
}

// Scan recomputes the full issue list for the batch. Records with blank
// identifiers are excluded entirely, not flagged.
func (e *Engine) Scan(records []Record) []Issue {
	field := e.field()
	var issues []Issue
	for i, rec := range records {
		issues = append(issues, scanValue(i, rec[field])...)
	}
	return issues
}

// ApplyFixes writes the accepted values onto the records and re-scans the
// whole batch. The re-scan is deliberately not incremental: fixing one
// record's spacing can change whether it now also trips the padding or year
// detector.
func (e *Engine) ApplyFixes(records []Record, fixes []Fix) []Issue {
	field := e.field()
	for _, f := range fixes {
		if f.RecordIndex < 0 || f.RecordIndex >= len(records) {
			continue
		}
		records[f.RecordIndex][field] = f.Value
	}
	return e.Scan(records)
}

// CountByType groups an issue list for API summaries.
func CountByType(issues []Issue) map[IssueType]int {
	counts := map[IssueType]int{}
	for _, is := range issues {
		counts[is.Type]++
	}
	return counts
}
