package qc

// IssueType identifies one formatting-defect detector. Types are independent:
// a single record may carry issues of several types at once.
type IssueType string

const (
	IssuePadding IssueType = "padding"
	IssueYear    IssueType = "year"
	IssueSpacing IssueType = "spacing"
	IssueTemp    IssueType = "temp"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is one detected formatting defect in a file-number identifier,
// paired with a deterministic suggested correction. Issues are transient:
// they are recomputed in full on every scan and never persisted.
type Issue struct {
	RecordIndex  int       `json:"record_index"`
	FileNumber   string    `json:"file_number"`
	Type         IssueType `json:"issue_type"`
	Description  string    `json:"description"`
	SuggestedFix string    `json:"suggested_fix"`
	AutoFixable  bool      `json:"auto_fixable"`
	Severity     Severity  `json:"severity"`
}

// Fix is an accepted correction for one record's file number.
type Fix struct {
	RecordIndex int    `json:"record_index"`
	Value       string `json:"value"`
}
