// Package registry reconciles loosely-structured land-registry identifiers
// into a deduplicated, uniquely-identified record set: property-identifier
// assignment over import batches and duplicate-group resolution over the
// persisted tables.
package registry

import "context"

// Service glues the store, the Assigner, and the Resolver into the API the
// HTTP layer consumes. All request validation lives here.
type Service struct {
	store    *Store
	assigner *Assigner
	resolver *Resolver
}

func NewService(store *Store) *Service {
	return &Service{
		store:    store,
		assigner: NewAssigner(store.Sources()...),
		resolver: NewResolver(store),
	}
}

func validPartition(p string) bool {
	return p == "" || p == PartitionTest || p == PartitionProduction
}

// Assign stamps property identifiers onto the batch without persisting it.
func (s *Service) Assign(ctx context.Context, sourceTable string, records []Record) ([]Assignment, AssignmentSummary, error) {
	if !KnownTable(sourceTable) {
		return nil, AssignmentSummary{}, NewValidationError("unknown table %q", sourceTable)
	}
	assignments, summary := s.assigner.Assign(ctx, sourceTable, records)
	return assignments, summary, nil
}

// Import assigns identifiers and persists the batch in one pass.
func (s *Service) Import(ctx context.Context, table string, records []Record) (ImportResult, error) {
	if !KnownTable(table) {
		return ImportResult{}, NewValidationError("unknown table %q", table)
	}
	assignments, summary := s.assigner.Assign(ctx, table, records)
	inserted, err := s.store.ImportRecords(ctx, table, records)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Assignments: assignments, Summary: summary, Inserted: inserted}, nil
}

func (s *Service) FindGroups(ctx context.Context, table, partition string) ([]DuplicateGroup, error) {
	if !KnownTable(table) {
		return nil, NewValidationError("unknown table %q", table)
	}
	if !validPartition(partition) {
		return nil, NewValidationError("invalid partition %q", partition)
	}
	return s.resolver.FindGroups(ctx, table, partition)
}

func (s *Service) DeleteGroups(ctx context.Context, table string, ops []DeleteOp, partition string) (int, error) {
	if !KnownTable(table) {
		return 0, NewValidationError("unknown table %q", table)
	}
	if !validPartition(partition) {
		return 0, NewValidationError("invalid partition %q", partition)
	}
	return s.resolver.DeleteGroups(ctx, table, ops, partition)
}

func (s *Service) Health(ctx context.Context) map[string]any {
	return s.store.Ping(ctx)
}

// Ensure Service satisfies the API interface at compile time.
var _ API = (*Service)(nil)
