package registry

import (
	"context"
	"sort"
	"time"

	"github.com/joelkehle/registry-intake/internal/canonical"
)

// RowSource is the storage access the Resolver needs: a full table read and
// a verified transactional bulk delete.
type RowSource interface {
	FetchRows(ctx context.Context, table, partition string) ([]RecordSnapshot, error)
	// DeleteRowsWhere deletes the given rows inside a single transaction,
	// calling verify on every matched row first. Any verify error or delete
	// failure rolls back the whole call.
	DeleteRowsWhere(ctx context.Context, table string, ids []int64, partition string, verify func(RecordSnapshot) error) (int, error)
}

// Resolver finds duplicate groups across a persisted table and performs
// verified bulk deletes. It holds no state between calls; every invocation
// re-reads the store.
type Resolver struct {
	rows RowSource
}

func NewResolver(rows RowSource) *Resolver {
	return &Resolver{rows: rows}
}

// FindGroups buckets all rows of the table by dedup key, discards singleton
// buckets, and selects a keep row per remaining bucket. Groups are sorted by
// display value for stable pagination; the keep selection is deterministic
// for a fixed input set.
func (r *Resolver) FindGroups(ctx context.Context, table, partition string) ([]DuplicateGroup, error) {
	rows, err := r.rows.FetchRows(ctx, table, partition)
	if err != nil {
		return nil, err
	}

	buckets := map[string][]RecordSnapshot{}
	order := []string{}
	for _, row := range rows {
		key := canonical.DedupKey(row.FileNumber)
		if key == "" {
			continue
		}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], row)
	}

	var groups []DuplicateGroup
	for _, key := range order {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		keep := selectKeep(members, partition)
		for i := range members {
			members[i].Locked = members[i].ID == keep.ID
		}
		groups = append(groups, DuplicateGroup{
			Table:        table,
			GroupKey:     key,
			DisplayValue: canonical.NormalizeDisplay(keep.FileNumber),
			Records:      members,
			KeepID:       keep.ID,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].DisplayValue < groups[j].DisplayValue
	})
	return groups, nil
}

// selectKeep picks the row that wins the ordering key (partition match,
// has tracking id, has property id, most recent update). Rows are visited in
// fetch order, so full ties keep the earliest row.
func selectKeep(members []RecordSnapshot, partition string) RecordSnapshot {
	keep := members[0]
	for _, row := range members[1:] {
		if beats(row, keep, partition) {
			keep = row
		}
	}
	return keep
}

func beats(a, b RecordSnapshot, partition string) bool {
	if s, t := partitionScore(a, partition), partitionScore(b, partition); s != t {
		return s > t
	}
	if s, t := boolScore(a.TrackingID != ""), boolScore(b.TrackingID != ""); s != t {
		return s > t
	}
	if s, t := boolScore(a.PropertyID != ""), boolScore(b.PropertyID != ""); s != t {
		return s > t
	}
	return newerTimestamp(a, b)
}

func partitionScore(row RecordSnapshot, partition string) int {
	if partition != "" && row.TestControl == partition {
		return 1
	}
	return 0
}

func boolScore(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newerTimestamp prefers the row with the most recent update. Timestamps are
// parsed and compared chronologically; unparseable legacy values fall back
// to lexical comparison.
func newerTimestamp(a, b RecordSnapshot) bool {
	ta, sa := rowTimestamp(a)
	tb, sb := rowTimestamp(b)
	if !ta.IsZero() && !tb.IsZero() {
		return ta.After(tb)
	}
	return sa > sb
}

func rowTimestamp(row RecordSnapshot) (time.Time, string) {
	s := row.UpdatedAt
	if s == "" {
		s = row.CreatedAt
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, s
	}
	return t, s
}

// DeleteGroups removes the non-keep members named by the operations. The
// keep row can never be deleted, and every targeted row must still hash to
// the caller-supplied group key; any mismatch fails the entire call before a
// single row is removed. All deletions in one call share one transaction.
func (r *Resolver) DeleteGroups(ctx context.Context, table string, ops []DeleteOp, partition string) (int, error) {
	expected := map[int64]string{}
	var ids []int64
	for _, op := range ops {
		for _, id := range op.DeleteIDs {
			if id == op.KeepID {
				return 0, NewValidationError("keep row %d is listed for deletion in group %s", id, op.GroupKey)
			}
			if prev, dup := expected[id]; dup {
				if prev != op.GroupKey {
					return 0, NewValidationError("row %d is claimed by both group %s and group %s", id, prev, op.GroupKey)
				}
				continue
			}
			ids = append(ids, id)
			expected[id] = op.GroupKey
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	return r.rows.DeleteRowsWhere(ctx, table, ids, partition, func(row RecordSnapshot) error {
		key := canonical.DedupKey(row.FileNumber)
		if key != expected[row.ID] {
			return NewValidationError("row %d now groups under %q, not %q; refresh and retry", row.ID, key, expected[row.ID])
		}
		return nil
	})
}
