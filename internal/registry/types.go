package registry

// Record is one imported row as delivered by the upload/parsing layer: a
// string-keyed mapping with blank cells represented as blank or missing.
type Record = map[string]string

// Well-known record fields.
const (
	FieldFileNumber  = "file_number"
	FieldPropertyID  = "property_id"
	FieldTrackingID  = "tracking_id"
	FieldTestControl = "test_control"
)

// Partition values of the test_control column. The empty string means no
// partition filter.
const (
	PartitionTest       = "TEST"
	PartitionProduction = "PRODUCTION"
)

type AssignmentStatus string

const (
	StatusNew           AssignmentStatus = "new"
	StatusExisting      AssignmentStatus = "existing"
	StatusSessionReused AssignmentStatus = "session_reused"
)

// Assignment records the property identifier stamped onto one batch record.
// Assignments are consumed immediately by the caller and never stored.
type Assignment struct {
	RecordIndex int              `json:"record_index"`
	FileNumber  string           `json:"file_number"`
	PropertyID  string           `json:"property_id"`
	Status      AssignmentStatus `json:"status"`
	SourceTable string           `json:"source_table"`
}

type AssignmentSummary struct {
	New           int `json:"new"`
	Existing      int `json:"existing"`
	SessionReused int `json:"session_reused"`
}

func (s *AssignmentSummary) count(status AssignmentStatus) {
	switch status {
	case StatusNew:
		s.New++
	case StatusExisting:
		s.Existing++
	case StatusSessionReused:
		s.SessionReused++
	}
}

// RecordSnapshot is a read-only projection of one persisted row, as exposed
// in duplicate-group listings. Locked marks the protected keep row.
type RecordSnapshot struct {
	ID          int64  `json:"id"`
	FileNumber  string `json:"file_number"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	TestControl string `json:"test_control"`
	TrackingID  string `json:"tracking_id"`
	PropertyID  string `json:"property_id"`
	Locked      bool   `json:"locked"`
}

// DuplicateGroup is a view over rows of one table sharing a dedup key.
// Groups are recomputed on every listing call, never stored.
type DuplicateGroup struct {
	Table        string           `json:"table"`
	GroupKey     string           `json:"group_key"`
	DisplayValue string           `json:"display_value"`
	Records      []RecordSnapshot `json:"records"`
	KeepID       int64            `json:"keep_id"`
}

// DeleteOp requests deletion of the non-keep members of one duplicate group.
type DeleteOp struct {
	KeepID    int64   `json:"keep_id"`
	DeleteIDs []int64 `json:"delete_ids"`
	GroupKey  string  `json:"group_key"`
}

// ImportResult summarizes one persisted upload batch.
type ImportResult struct {
	Assignments []Assignment      `json:"assignments"`
	Summary     AssignmentSummary `json:"summary"`
	Inserted    int               `json:"inserted"`
}
