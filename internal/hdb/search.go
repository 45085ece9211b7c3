package hdb

import (
	"context"
	"fmt"
	"sort"

	"hashesdb/internal/database/sqlc"
	"hashesdb/internal/hashing"
)

// SearchDuplicates computes the content identifier of each local file and
// returns the current catalog records holding the same content.
// Paths that are missing, are directories or cannot be read are reported and skipped.
func (s *HDBService) SearchDuplicates(ctx context.Context, rawPaths []string) ([]*DuplicateGroup, error) {
	var groups []*DuplicateGroup

	for _, raw := range rawPaths {
		p, err := s.fsmgr.Resolve(raw)
		if err != nil {
			s.logger.Warn("file not found, skipping", "path", raw, "error", err)
			continue
		}
		if p.IsDir() {
			s.logger.Warn("path is a directory, skipping", "path", p.String())
			continue
		}

		id, err := s.contentID(p)
		if err != nil {
			s.logger.Warn("cannot compute content identifier, skipping", "path", p.String(), "error", err)
			continue
		}

		matches, err := s.catalog.FindCurrentFilesByHash(ctx, hashing.ContentIdentifier, id)
		if err != nil {
			return nil, fmt.Errorf("searching duplicates of %s: %w", p.String(), err)
		}
		groups = append(groups, &DuplicateGroup{Path: p.String(), Identifier: id, Matches: matches})
	}

	return groups, nil
}

func (s *HDBService) contentID(p *Path) (string, error) {
	f, err := s.fsmgr.Open(p)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return hashing.ContentID(f, p.Info().Size())
}

// Search returns the records whose hash value or file name matches any of the
// given criteria, ordered by id.
func (s *HDBService) Search(ctx context.Context, hashValues, names []string) ([]*sqlc.File, error) {
	byID := make(map[int64]*sqlc.File)

	for _, value := range hashValues {
		files, err := s.catalog.FindFilesByHashValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("searching by hash: %w", err)
		}
		for _, f := range files {
			byID[f.ID] = f
		}
	}
	for _, name := range names {
		files, err := s.catalog.FindFilesByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("searching by name: %w", err)
		}
		for _, f := range files {
			byID[f.ID] = f
		}
	}

	out := make([]*sqlc.File, 0, len(byID))
	for _, f := range byID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
