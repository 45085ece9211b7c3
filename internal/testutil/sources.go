package testutil

import (
	"context"
	"sync"

	"hashesdb/internal/hdb"
)

// FakeArchiveResolver answers archive lookups from a fixed table.
// Identifiers absent from Known resolve to Default.
type FakeArchiveResolver struct {
	Known   map[string]hdb.ArchiveStatus
	Default hdb.ArchiveStatus

	mu    sync.Mutex
	calls []string
}

func (f *FakeArchiveResolver) Resolve(_ context.Context, identifier string) hdb.ArchiveStatus {
	f.mu.Lock()
	f.calls = append(f.calls, identifier)
	f.mu.Unlock()

	if status, ok := f.Known[identifier]; ok {
		return status
	}
	return f.Default
}

// Calls returns the identifiers looked up so far.
func (f *FakeArchiveResolver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeRemoteSource returns a canned resolution and records what it was asked for.
type FakeRemoteSource struct {
	Result hdb.Resolution

	mu        sync.Mutex
	ids       []string
	root      string
	recursive bool
}

func (f *FakeRemoteSource) Download(_ context.Context, ids []string, root string, recursive bool) hdb.Resolution {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, ids...)
	f.root = root
	f.recursive = recursive
	return f.Result
}

// Requested returns the repository ids passed to Download.
func (f *FakeRemoteSource) Requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

// Root returns the download root of the last call.
func (f *FakeRemoteSource) Root() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root
}

// CountingRecorder tallies recorder events. Safe for concurrent use.
type CountingRecorder struct {
	mu            sync.Mutex
	FilesScanned  int
	FilesFailed   int
	HashesOK      map[string]int
	HashesFailed  map[string]int
	ArchiveStatus map[hdb.ArchiveStatus]int
}

func NewCountingRecorder() *CountingRecorder {
	return &CountingRecorder{
		HashesOK:      make(map[string]int),
		HashesFailed:  make(map[string]int),
		ArchiveStatus: make(map[hdb.ArchiveStatus]int),
	}
}

func (r *CountingRecorder) FileScanned() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FilesScanned++
}

func (r *CountingRecorder) FileFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FilesFailed++
}

func (r *CountingRecorder) HashComputed(function string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HashesOK[function]++
}

func (r *CountingRecorder) HashFailed(function string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HashesFailed[function]++
}

func (r *CountingRecorder) ArchiveResolved(status hdb.ArchiveStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ArchiveStatus[status]++
}
