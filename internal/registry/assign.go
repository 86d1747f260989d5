package registry

import (
	"context"
	"log"
	"strconv"

	"github.com/joelkehle/registry-intake/internal/canonical"
)

// Source is one legacy table/column pair that may hold previously assigned
// property identifiers. Each source carries its own failure boundary: a scan
// error means "no information from this source" and never aborts a batch.
type Source interface {
	Name() string
	MaxPropertyID(ctx context.Context) (int64, bool, error)
	LookupPropertyID(ctx context.Context, fileNumber string) (string, bool, error)
}

// Assigner stamps a durable numeric property identifier onto each distinct
// file number of a batch. Previously persisted identifiers are preferred in
// source priority order; otherwise a fresh monotonically increasing value is
// minted. The session memo guarantees a repeated identifier within one batch
// never mints twice.
//
// The counter is reseeded from live maxima on every batch and is not guarded
// against concurrent batches; two simultaneous uploads can mint colliding
// identifiers. Known limitation of the current allocation scheme.
type Assigner struct {
	sources []Source
}

func NewAssigner(sources ...Source) *Assigner {
	return &Assigner{sources: sources}
}

// seed computes 1 + the highest identifier any source knows about. Sources
// that fail or hold nothing contribute nothing.
func (a *Assigner) seed(ctx context.Context) int64 {
	var max int64
	for _, src := range a.sources {
		v, ok, err := src.MaxPropertyID(ctx)
		if err != nil {
			log.Printf("assign: max scan of %s failed, skipping: %v", src.Name(), err)
			continue
		}
		if ok && v > max {
			max = v
		}
	}
	return max + 1
}

// lookup queries the sources in fixed priority order for an identifier
// already tied to this exact file number.
func (a *Assigner) lookup(ctx context.Context, fileNumber string) (string, bool) {
	for _, src := range a.sources {
		pid, ok, err := src.LookupPropertyID(ctx, fileNumber)
		if err != nil {
			log.Printf("assign: lookup in %s failed, skipping: %v", src.Name(), err)
			continue
		}
		if ok {
			return pid, true
		}
	}
	return "", false
}

// Assign walks the batch in order, producing one Assignment per record with
// a non-blank file number and stamping the identifier back onto the record.
// Records with blank identifiers are skipped entirely.
func (a *Assigner) Assign(ctx context.Context, sourceTable string, records []Record) ([]Assignment, AssignmentSummary) {
	next := a.seed(ctx)
	session := map[string]string{}

	var out []Assignment
	var summary AssignmentSummary
	for i, rec := range records {
		fn := canonical.NormalizeDisplay(rec[FieldFileNumber])
		if fn == "" {
			continue
		}

		var pid string
		var status AssignmentStatus
		if known, ok := session[fn]; ok {
			pid, status = known, StatusSessionReused
		} else if existing, ok := a.lookup(ctx, fn); ok {
			pid, status = existing, StatusExisting
			session[fn] = pid
		} else {
			pid, status = strconv.FormatInt(next, 10), StatusNew
			next++
			session[fn] = pid
		}

		rec[FieldPropertyID] = pid
		summary.count(status)
		out = append(out, Assignment{
			RecordIndex: i,
			FileNumber:  fn,
			PropertyID:  pid,
			Status:      status,
			SourceTable: sourceTable,
		})
	}
	return out, summary
}
