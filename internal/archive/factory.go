package archive

import (
	"fmt"
	"net/http"

	"hashesdb/internal/config"
	"hashesdb/internal/hdb"
)

// NewResolverFromConfig builds the resolver described by cfg.
// It returns nil when archive lookups are disabled.
func NewResolverFromConfig(cfg config.ArchiveConfig, clock hdb.Clock, logger hdb.Logger) (*Resolver, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	var cache Cache
	switch cfg.Cache {
	case "none":
		cache = nil
	case "memory", "":
		mem, err := NewMemoryCache(cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		cache = mem
	case "bolt":
		if cfg.CachePath == "" {
			return nil, fmt.Errorf("cache_path required for bolt archive cache")
		}
		mem, err := NewMemoryCache(cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		persistent, err := OpenBoltCache(cfg.CachePath, cfg.CacheTTL.Std(), clock)
		if err != nil {
			return nil, err
		}
		cache = NewTieredCache(mem, persistent)
	default:
		return nil, fmt.Errorf("unknown archive cache type: %s", cfg.Cache)
	}

	return NewResolver(cfg.BaseURL, client, cache, logger), nil
}
