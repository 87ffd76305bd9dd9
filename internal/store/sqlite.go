package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/clock"
)

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// Appender persists audit entries inside the caller's transaction.
// *audit.SQLiteRepository satisfies it.
type Appender interface {
	Append(ctx context.Context, exec audit.Execer, entry *audit.AuditLog) error
}

// SQLiteStore implements Store on the documents table.
type SQLiteStore struct {
	db      *sql.DB
	clock   clock.Clock
	auditor Appender
}

// NewSQLiteStore returns a store over db. The schema must already be migrated.
func NewSQLiteStore(db *sql.DB, clk clock.Clock, auditor Appender) *SQLiteStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &SQLiteStore{db: db, clock: clk, auditor: auditor}
}

// RunTx implements Store.
func (s *SQLiteStore) RunTx(ctx context.Context, propertyID string, fn func(tx Tx) error) error {
	if propertyID == "" {
		return errors.New("store: property id is required")
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("beginning transaction", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	tx := &sqliteTx{
		tx:       sqlTx,
		property: propertyID,
		now:      s.clock.Now().UTC(),
		versions: make(map[string]int64),
	}

	if err := fn(tx); err != nil {
		return err
	}

	actor := audit.ActorFrom(ctx)
	for i := range tx.audits {
		entry := tx.audits[i]
		entry.PropertyID = propertyID
		entry.CreatedAt = tx.now
		if entry.Actor == "" {
			entry.Actor = actor.ID
		}
		if entry.Source == "" {
			entry.Source = actor.Source
		}
		if err := s.auditor.Append(ctx, sqlTx, &entry); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrIntegrity, entry.Action, entry.EntityID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return classify("committing transaction", err)
	}
	return nil
}

// sqliteTx applies writes directly to the SQL transaction so later reads in
// the same unit of work observe them; atomicity comes from the SQL commit.
type sqliteTx struct {
	tx       *sql.Tx
	property string
	now      time.Time
	versions map[string]int64
	audits   []audit.AuditLog
}

func (t *sqliteTx) PropertyID() string { return t.property }
func (t *sqliteTx) Now() time.Time     { return t.now }

func (t *sqliteTx) Audit(entry audit.AuditLog) {
	t.audits = append(t.audits, entry)
}

func versionKey(collection, id string) string {
	return collection + "/" + id
}

func (t *sqliteTx) Get(ctx context.Context, collection, id string) (Document, error) {
	var doc Document
	var data string
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, version, data FROM documents WHERE property_id = ? AND collection = ? AND id = ?`,
		t.property, collection, id,
	).Scan(&doc.ID, &doc.Version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return Document{}, classify("reading document", err)
	}
	doc.Data = json.RawMessage(data)
	t.versions[versionKey(collection, id)] = doc.Version
	return doc, nil
}

func (t *sqliteTx) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	where, args, err := buildWhere(t.property, collection, filters)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(ctx,
		"SELECT id, version, data FROM documents WHERE "+where+" ORDER BY rowid", args...) //nolint:gosec // fields validated, values bound
	if err != nil {
		return nil, classify("querying documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var data string
		if err := rows.Scan(&doc.ID, &doc.Version, &data); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Data = json.RawMessage(data)
		t.versions[versionKey(collection, doc.ID)] = doc.Version
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterating documents", err)
	}
	return docs, nil
}

func (t *sqliteTx) Create(ctx context.Context, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}
	stamp := t.now.Format(timestampLayout)
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO documents (property_id, collection, id, data, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		t.property, collection, id, string(data), stamp, stamp,
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %s/%s already exists", ErrConflict, collection, id)
		}
		return classify("creating document", err)
	}
	t.versions[versionKey(collection, id)] = 1
	return nil
}

func (t *sqliteTx) Update(ctx context.Context, collection, id string, v any) error {
	key := versionKey(collection, id)
	version, seen := t.versions[key]
	if !seen {
		doc, err := t.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		version = doc.Version
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, version = version + 1, updated_at = ?
		 WHERE property_id = ? AND collection = ? AND id = ? AND version = ?`,
		string(data), t.now.Format(timestampLayout), t.property, collection, id, version,
	)
	if err != nil {
		return classify("updating document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		if _, err := t.Get(ctx, collection, id); errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %s/%s changed since read", ErrConflict, collection, id)
	}
	t.versions[key] = version + 1
	return nil
}

func (t *sqliteTx) Set(ctx context.Context, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}
	stamp := t.now.Format(timestampLayout)
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO documents (property_id, collection, id, data, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT (property_id, collection, id)
		 DO UPDATE SET data = excluded.data, version = documents.version + 1, updated_at = excluded.updated_at`,
		t.property, collection, id, string(data), stamp, stamp,
	)
	if err != nil {
		return classify("setting document", err)
	}
	delete(t.versions, versionKey(collection, id))
	return nil
}

func (t *sqliteTx) Delete(ctx context.Context, collection, id string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM documents WHERE property_id = ? AND collection = ? AND id = ?`,
		t.property, collection, id,
	)
	if err != nil {
		return classify("deleting document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(t.versions, versionKey(collection, id))
	return nil
}

func buildWhere(property, collection string, filters []Filter) (string, []any, error) {
	conditions := []string{"property_id = ?", "collection = ?"}
	args := []any{property, collection}

	for _, f := range filters {
		if !fieldPattern.MatchString(f.Field) {
			return "", nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, f.Field)
		}
		expr := "json_extract(data, '$." + f.Field + "')"

		switch f.Op {
		case OpEq:
			conditions = append(conditions, expr+" = ?")
			args = append(args, bindValue(f.Values[0]))
		case OpNe:
			conditions = append(conditions, expr+" <> ?")
			args = append(args, bindValue(f.Values[0]))
		case OpIn:
			if len(f.Values) == 0 {
				conditions = append(conditions, "0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Values)), ",")
			conditions = append(conditions, expr+" IN ("+placeholders+")")
			for _, v := range f.Values {
				args = append(args, bindValue(v))
			}
		default:
			return "", nil, fmt.Errorf("%w: unknown op %d", ErrInvalidFilter, f.Op)
		}
	}
	return strings.Join(conditions, " AND "), args, nil
}

// bindValue maps a Go value onto what json_extract yields for it:
// JSON booleans come back as 1/0, named string types as plain text.
func bindValue(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1
		}
		return 0
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()) //nolint:gosec // filter values are small counters
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return v
	}
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// classify maps lock contention onto ErrConflict so callers can retry.
func classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
