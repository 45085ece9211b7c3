package testutil

import (
	"testing"

	"hashesdb/internal/database"
	"hashesdb/internal/hdb"
)

// NewTestDatabase creates a new in-memory catalog with schema, registry and
// metadata applied. The catalog is automatically closed when the test completes.
func NewTestDatabase(t *testing.T, clock hdb.Clock) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, clock)
	if err := db.Initialize("test"); err != nil {
		db.Close()
		t.Fatalf("failed to initialize catalog: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
