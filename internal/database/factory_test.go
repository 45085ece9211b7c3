package database

import (
	"path/filepath"
	"testing"

	"hashesdb/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("memory catalog not migrated: %v", err)
		}
	})

	t.Run("existing sqlite catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.db")
		created, err := Create(path, false)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		created.Close()

		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", Path: path})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if got.Path() != path {
			t.Errorf("Path() = %q, want %q", got.Path(), path)
		}
	})

	t.Run("missing sqlite catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", Path: path})
		if err == nil {
			got.Close()
			t.Fatal("NewDatabaseFromConfig() expected error for missing catalog, got nil")
		}
	})

	t.Run("sqlite database without path", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			got.Close()
			t.Fatal("NewDatabaseFromConfig() expected error for missing path, got nil")
		}
	})

	t.Run("unknown database type", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "unknown"})
		if err == nil {
			got.Close()
			t.Fatal("NewDatabaseFromConfig() expected error for unknown type, got nil")
		}
	})
}
