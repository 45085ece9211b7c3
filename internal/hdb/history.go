package hdb

import (
	"context"
	"fmt"

	"hashesdb/internal/database/sqlc"
)

// FileHistoryEntry is one catalog record of a path together with its hashes.
type FileHistoryEntry struct {
	File   *sqlc.File
	Hashes []*sqlc.Hash
}

// GetHistory returns the most recent scan runs, newest first.
func (s *HDBService) GetHistory(ctx context.Context, limit int) ([]*sqlc.Scan, error) {
	scans, err := s.catalog.ListScans(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return scans, nil
}

// GetFileHistory returns every record of absPath from origin, oldest first.
// The path need not exist on disk anymore.
func (s *HDBService) GetFileHistory(ctx context.Context, absPath, origin string) ([]*FileHistoryEntry, error) {
	files, err := s.catalog.FindFilesByPath(ctx, absPath, origin)
	if err != nil {
		return nil, fmt.Errorf("finding file records: %w", err)
	}

	entries := make([]*FileHistoryEntry, 0, len(files))
	for _, f := range files {
		hashes, err := s.catalog.FindHashesForFile(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("finding hashes for file %d: %w", f.ID, err)
		}
		entries = append(entries, &FileHistoryEntry{File: f, Hashes: hashes})
	}
	return entries, nil
}

// GetInfo returns catalog metadata and counts.
func (s *HDBService) GetInfo(ctx context.Context) (*CatalogInfo, error) {
	info, err := s.catalog.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog info: %w", err)
	}
	return info, nil
}
