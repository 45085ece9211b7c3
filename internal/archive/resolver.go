// Package archive looks content identifiers up in the Software Heritage archive.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hashesdb/internal/hdb"
)

// DefaultBaseURL is the public Software Heritage API root.
const DefaultBaseURL = "https://archive.softwareheritage.org/api/1/"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 60 * time.Second

// Resolver implements hdb.ArchiveResolver against the archive's resolve endpoint.
// A 200 answer means the archive holds the content, a 404 that it does not.
// Every other answer, and every transport error, leaves the lookup unresolved.
type Resolver struct {
	baseURL string
	client  *http.Client
	cache   Cache
	logger  hdb.Logger
}

// NewResolver creates a resolver. A nil client gets DefaultTimeout; a nil
// cache disables caching.
func NewResolver(baseURL string, client *http.Client, cache Cache, logger hdb.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if cache == nil {
		cache = noCache{}
	}
	if logger == nil {
		logger = hdb.NewNopLogger()
	}
	return &Resolver{baseURL: baseURL, client: client, cache: cache, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, identifier string) hdb.ArchiveStatus {
	if status, ok := r.cache.Get(identifier); ok {
		return status
	}

	status, err := r.lookup(ctx, identifier)
	if err != nil {
		r.logger.Warn("archive lookup failed", "identifier", identifier, "error", err)
		return hdb.ArchiveUnresolved
	}

	if err := r.cache.Put(identifier, status); err != nil {
		r.logger.Warn("cannot cache archive lookup", "identifier", identifier, "error", err)
	}
	return status
}

func (r *Resolver) lookup(ctx context.Context, identifier string) (hdb.ArchiveStatus, error) {
	url := r.baseURL + "resolve/" + identifier + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return hdb.ArchiveUnresolved, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return hdb.ArchiveUnresolved, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return hdb.ArchiveKnown, nil
	case http.StatusNotFound:
		return hdb.ArchiveNotKnown, nil
	default:
		return hdb.ArchiveUnresolved, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

var _ hdb.ArchiveResolver = (*Resolver)(nil)

// Close releases the resolver's cache.
func (r *Resolver) Close() error {
	return r.cache.Close()
}
