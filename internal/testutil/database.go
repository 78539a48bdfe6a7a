// Package testutil provides test utilities for ledgerscope: an isolated
// in-memory database and a fluent builder for ledger fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Store *storage.Store
	t     *testing.T
}

// SetupTestDB creates a new migrated in-memory database and registers its
// cleanup with t.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.Seed(testutil.NewLedgerBuilder(t).WithFixture(testutil.FixtureSmallBank).Build())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()
	store, err := storage.Open(ctx, storage.DriverSQLite, ":memory:", storage.OpenOptions{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Store: store, t: t}
}

// Seed writes l to the database or fails the test.
func (db *TestDB) Seed(l model.Ledger) *TestDB {
	db.t.Helper()
	if err := db.Store.SaveLedger(context.Background(), l); err != nil {
		db.t.Fatalf("failed to seed ledger: %v", err)
	}
	return db
}
