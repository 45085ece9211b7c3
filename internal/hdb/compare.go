package hdb

import (
	"context"
	"fmt"

	"hashesdb/internal/database/sqlc"
	"hashesdb/internal/hashing"
)

// Compare scores every unordered pair of the given hash records with the
// similarity measure of a fuzzy hash function.
//
// The function must be registered and fuzzy, otherwise ErrUnknownHashFunction
// or ErrNotFuzzy is returned. Ids that do not exist or that belong to another
// function are reported and skipped. With fewer than two usable records the
// result is empty.
func (s *HDBService) Compare(ctx context.Context, function string, ids []int64) ([]Similarity, error) {
	fn, err := s.catalog.RegistryLookup(ctx, function)
	if err != nil {
		return nil, fmt.Errorf("looking up hash function: %w", err)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHashFunction, function)
	}
	if !fn.Fuzzy {
		return nil, fmt.Errorf("%w: %s", ErrNotFuzzy, function)
	}

	records, err := s.catalog.LookupHashRecords(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("looking up hash records: %w", err)
	}
	byID := make(map[int64]*sqlc.Hash, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	seen := make(map[int64]bool, len(ids))
	var usable []*sqlc.Hash
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		r, ok := byID[id]
		if !ok {
			s.logger.Warn("hash record not found, skipping", "hash_id", id)
			continue
		}
		if r.FunctionName != function {
			s.logger.Warn("hash record belongs to another function, skipping",
				"hash_id", id, "function", r.FunctionName, "want", function)
			continue
		}
		usable = append(usable, r)
	}

	if len(usable) < 2 {
		s.logger.Info("nothing to compare", "function", function, "usable", len(usable))
		return nil, nil
	}

	var out []Similarity
	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			a, b := usable[i], usable[j]
			score, err := hashing.Compare(function, a.Value, b.Value)
			if err != nil {
				s.logger.Warn("comparison failed, skipping pair", "a", a.ID, "b", b.ID, "error", err)
				continue
			}
			out = append(out, Similarity{A: a.ID, B: b.ID, Score: score})
		}
	}
	return out, nil
}
