package database

import (
	"fmt"
	"os"

	"hashesdb/internal/config"
)

// NewDatabaseFromConfig opens the catalog described by the database config.
// A sqlite catalog must already exist (see Create); a memory catalog is
// initialized on the fly.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, fmt.Errorf("catalog not found at %s (run `hashesdb create` first): %w", cfg.Path, err)
		}
		return NewSQLiteDatabase(cfg.Path)
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.Initialize("memory"); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
