package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/registry-intake/internal/canonical"
)

// Tables lists the import-source tables in the fixed priority order used for
// existing-identifier lookups and counter seeding.
var Tables = []string{
	"file_index",
	"cofo",
	"registration_abstract",
	"index_card",
	"file_history",
}

func KnownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// Every import source shares one row layout; source-specific columns from
// the upload live in the attrs JSON blob.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id           %[2]s,
	file_number  TEXT NOT NULL DEFAULT '',
	property_id  TEXT NOT NULL DEFAULT '',
	tracking_id  TEXT NOT NULL DEFAULT '',
	test_control TEXT NOT NULL DEFAULT 'PRODUCTION',
	attrs        TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_file_number_idx ON %[1]s (file_number);
`

const snapshotColumns = "id, file_number, property_id, tracking_id, test_control, created_at, updated_at"

// Config configures the store. DatabaseURL is either a SQLite path
// (":memory:" works) or a postgres:// URL selecting the lib/pq driver.
// Clock defaults to time.Now and exists for tests.
type Config struct {
	DatabaseURL string
	Clock       func() time.Time
}

// Store persists the five import-source tables behind sqlx, with SQLite as
// the default engine and PostgreSQL selected by DSN.
type Store struct {
	db    *sqlx.DB
	clock func() time.Time
}

func Open(cfg Config) (*Store, error) {
	driver := "sqlite"
	dsn := cfg.DatabaseURL
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		driver = "postgres"
		idColumn = "BIGSERIAL PRIMARY KEY"
	case dsn == "":
		dsn = "registry.db"
		fallthrough
	default:
		if dsn != ":memory:" && !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	for _, table := range Tables {
		if _, err := db.Exec(fmt.Sprintf(schemaTemplate, table, idColumn)); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema for %s: %w", table, err)
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: db, clock: clock}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableJSON(v any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// ImportRecords persists one upload batch into table inside a single
// transaction. File numbers are stored display-normalized, a tracking id is
// minted when absent, and unknown record fields land in the attrs column.
// The minted tracking id and timestamps are stamped back onto the records.
func (s *Store) ImportRecords(ctx context.Context, table string, records []Record) (int, error) {
	if !KnownTable(table) {
		return 0, NewValidationError("unknown table %q", table)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, NewInternalError("begin import: %v", err)
	}
	defer tx.Rollback()

	now := timeToString(s.clock())
	insert := tx.Rebind(fmt.Sprintf(
		`INSERT INTO %s (file_number, property_id, tracking_id, test_control, attrs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, table))

	inserted := 0
	for _, rec := range records {
		if rec[FieldTrackingID] == "" {
			rec[FieldTrackingID] = uuid.NewString()
		}
		partition := rec[FieldTestControl]
		if partition == "" {
			partition = PartitionProduction
		}
		if _, err := tx.ExecContext(ctx, insert,
			canonical.NormalizeDisplay(rec[FieldFileNumber]),
			rec[FieldPropertyID],
			rec[FieldTrackingID],
			partition,
			nullableJSON(extraFields(rec)),
			now,
			now,
		); err != nil {
			return 0, NewInternalError("insert into %s: %v", table, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, NewInternalError("commit import into %s: %v", table, err)
	}
	return inserted, nil
}

func extraFields(rec Record) map[string]string {
	extra := map[string]string{}
	for k, v := range rec {
		switch k {
		case FieldFileNumber, FieldPropertyID, FieldTrackingID, FieldTestControl:
		default:
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// FetchRows returns the snapshot projection of every row, optionally
// restricted to one partition, in id order.
func (s *Store) FetchRows(ctx context.Context, table, partition string) ([]RecordSnapshot, error) {
	if !KnownTable(table) {
		return nil, NewValidationError("unknown table %q", table)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", snapshotColumns, table)
	args := []any{}
	if partition != "" {
		query += " WHERE test_control = ?"
		args = append(args, partition)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, NewInternalError("fetch %s: %v", table, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]RecordSnapshot, error) {
	var out []RecordSnapshot
	for rows.Next() {
		var r RecordSnapshot
		if err := rows.Scan(&r.ID, &r.FileNumber, &r.PropertyID, &r.TrackingID, &r.TestControl, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRowsWhere deletes the given rows inside one transaction. Every row
// matched by ids (and the partition filter) is re-read and handed to verify;
// any verify error aborts the whole call with nothing deleted.
func (s *Store) DeleteRowsWhere(ctx context.Context, table string, ids []int64, partition string, verify func(RecordSnapshot) error) (int, error) {
	if !KnownTable(table) {
		return 0, NewValidationError("unknown table %q", table)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	selectQ := fmt.Sprintf("SELECT %s FROM %s WHERE id IN (?)", snapshotColumns, table)
	deleteQ := fmt.Sprintf("DELETE FROM %s WHERE id IN (?)", table)
	args := []any{ids}
	if partition != "" {
		selectQ += " AND test_control = ?"
		deleteQ += " AND test_control = ?"
		args = append(args, partition)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, NewInternalError("begin delete: %v", err)
	}
	defer tx.Rollback()

	q, qargs, err := sqlx.In(selectQ, args...)
	if err != nil {
		return 0, NewInternalError("expand delete select: %v", err)
	}
	rows, err := tx.QueryContext(ctx, tx.Rebind(q), qargs...)
	if err != nil {
		return 0, NewInternalError("read rows for delete: %v", err)
	}
	matched, err := scanSnapshots(rows)
	rows.Close()
	if err != nil {
		return 0, NewInternalError("scan rows for delete: %v", err)
	}
	for _, row := range matched {
		if verr := verify(row); verr != nil {
			return 0, verr
		}
	}

	q, qargs, err = sqlx.In(deleteQ, args...)
	if err != nil {
		return 0, NewInternalError("expand delete: %v", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(q), qargs...)
	if err != nil {
		return 0, NewInternalError("delete from %s: %v", table, err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, NewInternalError("commit delete from %s: %v", table, err)
	}
	return int(deleted), nil
}

// --- legacy source adapters for the Assigner ---

type tableSource struct {
	store *Store
	table string
}

func (t tableSource) Name() string { return t.table }

// MaxPropertyID scans every stored identifier and returns the numeric
// maximum. Non-numeric legacy values are ignored.
func (t tableSource) MaxPropertyID(ctx context.Context) (int64, bool, error) {
	rows, err := t.store.db.QueryContext(ctx,
		t.store.db.Rebind(fmt.Sprintf("SELECT property_id FROM %s WHERE property_id <> ''", t.table)))
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	var max int64
	found := false
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return 0, false, err
		}
		v, err := strconv.ParseInt(strings.TrimSpace(pid), 10, 64)
		if err != nil {
			continue
		}
		if !found || v > max {
			max, found = v, true
		}
	}
	return max, found, rows.Err()
}

func (t tableSource) LookupPropertyID(ctx context.Context, fileNumber string) (string, bool, error) {
	var pid string
	err := t.store.db.QueryRowContext(ctx,
		t.store.db.Rebind(fmt.Sprintf(
			"SELECT property_id FROM %s WHERE file_number = ? AND property_id <> '' ORDER BY id LIMIT 1", t.table)),
		fileNumber,
	).Scan(&pid)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pid, true, nil
}

// Sources exposes one legacy source per table, in Tables priority order.
func (s *Store) Sources() []Source {
	out := make([]Source, 0, len(Tables))
	for _, t := range Tables {
		out = append(out, tableSource{store: s, table: t})
	}
	return out
}

// Ping reports connectivity plus per-table row counts, best effort.
func (s *Store) Ping(ctx context.Context) map[string]any {
	health := map[string]any{"status": "ok"}
	if err := s.db.PingContext(ctx); err != nil {
		health["status"] = "degraded"
		health["error"] = err.Error()
		return health
	}
	counts := map[string]int64{}
	for _, table := range Tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			continue
		}
		counts[table] = n
	}
	health["tables"] = counts
	return health
}
