package hdb

import (
	"context"
	"fmt"

	"hashesdb/internal/database/sqlc"
	"hashesdb/internal/hashing"
)

// ValidHashFunctions filters requested names down to registered hash functions.
// Duplicates are dropped and so is the content identifier, which every scan
// computes anyway. Unregistered names are reported and dropped.
func (s *HDBService) ValidHashFunctions(ctx context.Context, requested []string) ([]string, error) {
	registry, err := s.catalog.ListRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading hash function registry: %v", ErrCatalogMetadata, err)
	}

	known := make(map[string]bool, len(registry))
	for _, fn := range registry {
		known[fn.Name] = true
	}

	seen := make(map[string]bool, len(requested))
	var valid []string
	for _, name := range requested {
		if name == hashing.ContentIdentifier || seen[name] {
			continue
		}
		seen[name] = true
		if !known[name] {
			s.logger.Warn("hash function not available, skipping", "function", name)
			continue
		}
		valid = append(valid, name)
	}
	return valid, nil
}

// HashFunctions returns the hash function registry.
func (s *HDBService) HashFunctions(ctx context.Context) ([]*sqlc.HashFunction, error) {
	fns, err := s.catalog.ListRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hash functions: %w", err)
	}
	return fns, nil
}

// HashIsAvailable reports whether name is in the registry.
func (s *HDBService) HashIsAvailable(ctx context.Context, name string) (bool, error) {
	fn, err := s.catalog.RegistryLookup(ctx, name)
	if err != nil {
		return false, fmt.Errorf("looking up hash function: %w", err)
	}
	return fn != nil, nil
}
