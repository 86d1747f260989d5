package registry

import "context"

// API is the reconciliation interface consumed by the HTTP layer. It allows
// swapping the full sqlx-backed service for a fake in transport tests.
type API interface {
	Assign(ctx context.Context, sourceTable string, records []Record) ([]Assignment, AssignmentSummary, error)
	Import(ctx context.Context, table string, records []Record) (ImportResult, error)
	FindGroups(ctx context.Context, table, partition string) ([]DuplicateGroup, error)
	DeleteGroups(ctx context.Context, table string, ops []DeleteOp, partition string) (int, error)
	Health(ctx context.Context) map[string]any
}
