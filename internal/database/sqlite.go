package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hashesdb/internal/database/migrations"
	"hashesdb/internal/database/sqlc"
	"hashesdb/internal/hdb"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the hdb.Catalog interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   hdb.Clock
}

// NewSQLiteDatabase opens an existing catalog.
// path can be a file path or ":memory:" for an in-memory catalog.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
		clock:   hdb.RealClock{},
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock hdb.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = hdb.RealClock{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" catalogs
	// on one database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Create makes a new, initialized catalog file at path.
// An existing file is only replaced when overwrite is set.
func Create(path string, overwrite bool) (*SQLiteDatabase, error) {
	if filepath.Ext(path) != ".db" {
		return nil, fmt.Errorf("catalog file must have a .db extension: %s", path)
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("catalog directory does not exist: %s", dir)
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("catalog already exists at %s (use --overwrite to replace it)", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing existing catalog: %w", err)
		}
	}

	s, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := s.Initialize(name); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Initialize migrates the schema to the latest version and writes the catalog
// metadata row if it is missing.
func (s *SQLiteDatabase) Initialize(name string) error {
	if err := migrations.MigrateUp(s.db); err != nil {
		return fmt.Errorf("migrating catalog: %w", err)
	}

	ctx := context.Background()
	_, err := s.queries.GetDBInformation(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading catalog metadata: %w", err)
	}

	version, err := migrations.LatestVersion()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	err = s.queries.InsertDBInformation(ctx, sqlc.InsertDBInformationParams{
		DbName:         name,
		DbDateCreated:  now,
		DbDateModified: now,
		DbVersion:      int64(version),
	})
	if err != nil {
		return fmt.Errorf("writing catalog metadata: %w", err)
	}
	return nil
}

// Scan runs

func (s *SQLiteDatabase) NextScanID(ctx context.Context) (int64, error) {
	info, err := s.queries.GetDBInformation(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading last scan id: %w", err)
	}
	return info.DbLastScanID + 1, nil
}

func (s *SQLiteDatabase) RecordScan(ctx context.Context, scan *sqlc.Scan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	err = qtx.InsertScan(ctx, sqlc.InsertScanParams{
		ID:         scan.ID,
		Hostname:   scan.Hostname,
		Command:    scan.Command,
		StartedAt:  scan.StartedAt,
		ReturnCode: scan.ReturnCode,
	})
	if err != nil {
		return fmt.Errorf("inserting scan: %w", err)
	}

	err = qtx.UpdateDBLastScanID(ctx, sqlc.UpdateDBLastScanIDParams{
		DbLastScanID:   scan.ID,
		DbDateModified: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("updating last scan id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FinalizeScan(ctx context.Context, scanID int64, outcome hdb.Outcome) error {
	err := s.queries.UpdateScanReturnCode(ctx, sqlc.UpdateScanReturnCodeParams{
		ReturnCode: int64(outcome),
		ID:         scanID,
	})
	if err != nil {
		return fmt.Errorf("updating scan return code: %w", err)
	}
	if err := s.queries.TouchDBInformation(ctx, s.clock.Now()); err != nil {
		return fmt.Errorf("updating catalog modification date: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListScans(ctx context.Context, limit int) ([]*sqlc.Scan, error) {
	scans, err := s.queries.GetScans(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}

	result := make([]*sqlc.Scan, len(scans))
	for i := range scans {
		result[i] = &scans[i]
	}
	return result, nil
}

// GetScan returns a scan run by id.
func (s *SQLiteDatabase) GetScan(ctx context.Context, id int64) (*sqlc.Scan, error) {
	scan, err := s.queries.GetScanByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding scan: %w", err)
	}
	return &scan, nil
}

// File operations

func (s *SQLiteDatabase) SupersedeAndInsertFile(ctx context.Context, file *sqlc.File) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	if _, err := qtx.SupersedeFiles(ctx, sqlc.SupersedeFilesParams{
		Path:   file.Path,
		Origin: file.Origin,
	}); err != nil {
		return 0, fmt.Errorf("superseding previous records: %w", err)
	}

	id, err := qtx.InsertFile(ctx, sqlc.InsertFileParams{
		ScanID:      file.ScanID,
		Name:        file.Name,
		Extension:   file.Extension,
		Path:        file.Path,
		Size:        file.Size,
		CreatedAt:   file.CreatedAt,
		ModifiedAt:  file.ModifiedAt,
		RetrievedAt: file.RetrievedAt,
		Origin:      file.Origin,
		SwhKnown:    file.SwhKnown,
	})
	if err != nil {
		return 0, fmt.Errorf("inserting file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) SetArchiveStatus(ctx context.Context, fileID int64, status hdb.ArchiveStatus) error {
	err := s.queries.UpdateFileSwhKnown(ctx, sqlc.UpdateFileSwhKnownParams{
		SwhKnown: status.NullBool(),
		ID:       fileID,
	})
	if err != nil {
		return fmt.Errorf("updating archive status: %w", err)
	}
	return nil
}

// GetFile returns a file record by id.
func (s *SQLiteDatabase) GetFile(ctx context.Context, id int64) (*sqlc.File, error) {
	f, err := s.queries.GetFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return &f, nil
}

func (s *SQLiteDatabase) FindFilesByPath(ctx context.Context, path, origin string) ([]*sqlc.File, error) {
	files, err := s.queries.GetFilesByPathAndOrigin(ctx, sqlc.GetFilesByPathAndOriginParams{
		Path:   path,
		Origin: origin,
	})
	if err != nil {
		return nil, fmt.Errorf("finding files by path: %w", err)
	}
	return filePointers(files), nil
}

func (s *SQLiteDatabase) FindFilesByName(ctx context.Context, name string) ([]*sqlc.File, error) {
	files, err := s.queries.GetFilesByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding files by name: %w", err)
	}
	return filePointers(files), nil
}

func (s *SQLiteDatabase) FindFilesByHashValue(ctx context.Context, value string) ([]*sqlc.File, error) {
	files, err := s.queries.GetFilesByHashValue(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("finding files by hash value: %w", err)
	}
	return filePointers(files), nil
}

func (s *SQLiteDatabase) FindCurrentFilesByHash(ctx context.Context, function, value string) ([]*sqlc.File, error) {
	files, err := s.queries.GetCurrentFilesByHash(ctx, sqlc.GetCurrentFilesByHashParams{
		FunctionName: function,
		Value:        value,
	})
	if err != nil {
		return nil, fmt.Errorf("finding current files by hash: %w", err)
	}
	return filePointers(files), nil
}

func filePointers(files []sqlc.File) []*sqlc.File {
	result := make([]*sqlc.File, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result
}

// Hash operations

func (s *SQLiteDatabase) InsertHash(ctx context.Context, fileID int64, function, value string) (int64, error) {
	id, err := s.queries.InsertHash(ctx, sqlc.InsertHashParams{
		Value:        value,
		FunctionName: function,
		FileID:       fileID,
	})
	if err != nil {
		return 0, fmt.Errorf("inserting hash: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) LookupHashRecords(ctx context.Context, ids []int64) ([]*sqlc.Hash, error) {
	var result []*sqlc.Hash
	for _, id := range ids {
		h, err := s.queries.GetHashByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("finding hash %d: %w", id, err)
		}
		result = append(result, &h)
	}
	return result, nil
}

func (s *SQLiteDatabase) FindHashesForFile(ctx context.Context, fileID int64) ([]*sqlc.Hash, error) {
	hashes, err := s.queries.GetHashesByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("finding hashes for file: %w", err)
	}

	result := make([]*sqlc.Hash, len(hashes))
	for i := range hashes {
		result[i] = &hashes[i]
	}
	return result, nil
}

// Registry

func (s *SQLiteDatabase) RegistryLookup(ctx context.Context, name string) (*sqlc.HashFunction, error) {
	fn, err := s.queries.GetHashFunction(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up hash function: %w", err)
	}
	return &fn, nil
}

func (s *SQLiteDatabase) ListRegistry(ctx context.Context) ([]*sqlc.HashFunction, error) {
	fns, err := s.queries.ListHashFunctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hash functions: %w", err)
	}

	result := make([]*sqlc.HashFunction, len(fns))
	for i := range fns {
		result[i] = &fns[i]
	}
	return result, nil
}

// Metadata

func (s *SQLiteDatabase) Info(ctx context.Context) (*hdb.CatalogInfo, error) {
	info, err := s.queries.GetDBInformation(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog metadata: %w", err)
	}
	counts, err := s.queries.GetCatalogCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting catalog records: %w", err)
	}

	return &hdb.CatalogInfo{
		Name:             info.DbName,
		Created:          info.DbDateCreated,
		Modified:         info.DbDateModified,
		Version:          info.DbVersion,
		LastScanID:       info.DbLastScanID,
		ScanCount:        counts.ScanCount,
		FileCount:        counts.FileCount,
		CurrentFileCount: counts.CurrentFileCount,
		HashCount:        counts.HashCount,
	}, nil
}

// LastScanID returns the id of the most recently recorded scan, or 0.
func (s *SQLiteDatabase) LastScanID() (int64, error) {
	info, err := s.queries.GetDBInformation(context.Background())
	if err != nil {
		return 0, fmt.Errorf("reading last scan id: %w", err)
	}
	return info.DbLastScanID, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the catalog schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the catalog at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements hdb.Catalog interface
var _ hdb.Catalog = (*SQLiteDatabase)(nil)
