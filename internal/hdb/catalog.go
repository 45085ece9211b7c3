package hdb

import (
	"context"

	"hashesdb/internal/database/sqlc"
)

// Catalog is the persistent store of scans, files, hashes and the hash function registry.
// Lookups return nil and no error when nothing matches.
type Catalog interface {
	// Scan runs

	// NextScanID returns the id the next recorded scan will receive.
	NextScanID(ctx context.Context) (int64, error)

	// RecordScan inserts a scan run and advances the catalog's last scan id.
	RecordScan(ctx context.Context, scan *sqlc.Scan) error

	// FinalizeScan stores the final outcome of a scan run.
	FinalizeScan(ctx context.Context, scanID int64, outcome Outcome) error

	// ListScans returns up to limit scan runs, newest first.
	ListScans(ctx context.Context, limit int) ([]*sqlc.Scan, error)

	// Files

	// SupersedeAndInsertFile marks every current record with the same path and
	// origin as superseded and inserts file as the new current record, atomically.
	SupersedeAndInsertFile(ctx context.Context, file *sqlc.File) (int64, error)

	// SetArchiveStatus records the archive lookup result for a file.
	SetArchiveStatus(ctx context.Context, fileID int64, status ArchiveStatus) error

	// FindFilesByPath returns every record, current or superseded, for a path and origin.
	FindFilesByPath(ctx context.Context, path, origin string) ([]*sqlc.File, error)

	// FindFilesByName returns records whose base name matches exactly.
	FindFilesByName(ctx context.Context, name string) ([]*sqlc.File, error)

	// FindFilesByHashValue returns records having any hash equal to value.
	FindFilesByHashValue(ctx context.Context, value string) ([]*sqlc.File, error)

	// FindCurrentFilesByHash returns current records with the given hash value for one function.
	FindCurrentFilesByHash(ctx context.Context, function, value string) ([]*sqlc.File, error)

	// Hashes

	// InsertHash stores one hash value for a file.
	InsertHash(ctx context.Context, fileID int64, function, value string) (int64, error)

	// LookupHashRecords returns the hash records that exist among ids, in the order given.
	LookupHashRecords(ctx context.Context, ids []int64) ([]*sqlc.Hash, error)

	// FindHashesForFile returns every hash stored for a file.
	FindHashesForFile(ctx context.Context, fileID int64) ([]*sqlc.Hash, error)

	// Registry

	// RegistryLookup returns the registry entry for name.
	RegistryLookup(ctx context.Context, name string) (*sqlc.HashFunction, error)

	// ListRegistry returns every registered hash function.
	ListRegistry(ctx context.Context) ([]*sqlc.HashFunction, error)

	// Info returns catalog metadata and counts.
	Info(ctx context.Context) (*CatalogInfo, error)

	// Close closes the catalog connection.
	Close() error
}
