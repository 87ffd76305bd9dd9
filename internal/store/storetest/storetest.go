// Package storetest opens a migrated in-memory document store for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/clock"
	"github.com/nerrad567/stayflow-core/internal/infrastructure/database"
	"github.com/nerrad567/stayflow-core/internal/store"
	"github.com/nerrad567/stayflow-core/migrations"
)

// Env bundles the pieces a test usually needs.
type Env struct {
	DB    *database.DB
	Store *store.SQLiteStore
	Audit *audit.SQLiteRepository
	Clock *clock.Manual
}

// New returns a fresh store backed by its own in-memory database. The
// database is closed when the test ends.
func New(t testing.TB, clk *clock.Manual) *Env {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo := audit.NewSQLiteRepository(db.DB)
	return &Env{
		DB:    db,
		Store: store.NewSQLiteStore(db.DB, clk, repo),
		Audit: repo,
		Clock: clk,
	}
}

// Seed writes docs into collection for propertyID, keyed by the given ids.
func Seed[T any](t testing.TB, s store.Store, propertyID, collection string, docs map[string]T) {
	t.Helper()
	err := s.RunTx(context.Background(), propertyID, func(tx store.Tx) error {
		for id, doc := range docs {
			if err := tx.Create(context.Background(), collection, id, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding %s: %v", collection, err)
	}
}

// Fetch reads one document outside any operation under test.
func Fetch[T any](t testing.TB, s store.Store, propertyID, collection, id string) *T {
	t.Helper()
	var out *T
	err := s.RunTx(context.Background(), propertyID, func(tx store.Tx) error {
		var err error
		out, err = store.Get[T](context.Background(), tx, collection, id)
		return err
	})
	if err != nil {
		t.Fatalf("fetching %s/%s: %v", collection, id, err)
	}
	return out
}

// List reads every document matching filters.
func List[T any](t testing.TB, s store.Store, propertyID, collection string, filters ...store.Filter) []T {
	t.Helper()
	var out []T
	err := s.RunTx(context.Background(), propertyID, func(tx store.Tx) error {
		var err error
		out, err = store.Query[T](context.Background(), tx, collection, filters...)
		return err
	})
	if err != nil {
		t.Fatalf("listing %s: %v", collection, err)
	}
	return out
}
