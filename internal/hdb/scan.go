package hdb

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"hashesdb/internal/database/sqlc"
	"hashesdb/internal/hashing"
)

// ScanRequest describes one scan invocation.
type ScanRequest struct {
	// Local holds file or directory paths on this host.
	Local []string

	// Remote maps a platform name to repository identifiers on it.
	Remote map[string][]string

	// HashFunctions are the requested hash function names. The content
	// identifier is always computed and need not be listed.
	HashFunctions []string

	// DownloadDir is where remote repositories are mirrored.
	DownloadDir string

	Recursive bool

	// Command is the invoking command line, stored on the scan run.
	Command string
}

// ScanResult reports the id and final outcome of a scan run.
type ScanResult struct {
	ID       int64
	Outcome  Outcome
	Targets  int
	Failures int
}

// Scan records a scan run, resolves every target class in turn, hashes each
// resolved file into the catalog and stores the aggregated outcome.
// Only catalog metadata failures abort the run; everything else is logged and
// lowers the outcome.
func (s *HDBService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	functions, err := s.ValidHashFunctions(ctx, req.HashFunctions)
	if err != nil {
		return nil, err
	}

	id, err := s.catalog.NextScanID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: allocating scan id: %v", ErrCatalogMetadata, err)
	}

	run := &sqlc.Scan{
		ID:         id,
		Hostname:   s.hostname,
		Command:    req.Command,
		StartedAt:  s.clock.Now(),
		ReturnCode: int64(OutcomeRunning),
	}
	if err := s.catalog.RecordScan(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: recording scan: %v", ErrCatalogMetadata, err)
	}
	s.logger.Info("scan started", "scan_id", id, "hash_functions", strings.Join(functions, ","))

	result := &ScanResult{ID: id, Outcome: OutcomeSuccess}

	if len(req.Local) > 0 {
		res := s.EnumerateLocal(req.Local, s.hostname, req.Recursive)
		s.scanClass(ctx, result, "local", res, functions)
	}

	platforms := make([]string, 0, len(req.Remote))
	for platform := range req.Remote {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		ids := req.Remote[platform]
		if len(ids) == 0 || ctx.Err() != nil {
			continue
		}
		src, ok := s.remotes[platform]
		if !ok {
			s.logger.Error("no remote source configured, skipping", "platform", platform, "targets", len(ids))
			result.Failures += len(ids)
			result.Outcome = result.Outcome.Worse(OutcomeFileIncomplete)
			continue
		}
		res := src.Download(ctx, ids, req.DownloadDir, req.Recursive)
		s.scanClass(ctx, result, platform, res, functions)
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("scan interrupted, remaining files not scanned", "scan_id", id, "error", err)
		result.Outcome = result.Outcome.Worse(OutcomeFileIncomplete)
	}

	if err := s.catalog.FinalizeScan(context.WithoutCancel(ctx), id, result.Outcome); err != nil {
		return result, fmt.Errorf("finalizing scan %d: %w", id, err)
	}

	s.logger.Info("scan finished", "scan_id", id, "outcome", result.Outcome.String(),
		"targets", result.Targets, "failures", result.Failures)
	return result, nil
}

func (s *HDBService) scanClass(ctx context.Context, result *ScanResult, class string, res Resolution, functions []string) {
	s.logger.Info("targets resolved", "class", class, "targets", len(res.Targets), "failures", res.Failures)

	result.Targets += len(res.Targets)
	result.Failures += res.Failures
	if res.Failures > 0 {
		result.Outcome = result.Outcome.Worse(OutcomeFileIncomplete)
	}

	result.Outcome = result.Outcome.Worse(s.scanTargets(ctx, result.ID, res.Targets, functions))
}

// scanTargets hashes targets on a bounded worker pool. Cancellation stops new
// files from starting; a file already started runs to completion.
func (s *HDBService) scanTargets(ctx context.Context, scanID int64, targets []ScanTarget, functions []string) Outcome {
	outcome := OutcomeSuccess
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o := s.scanFile(context.WithoutCancel(ctx), scanID, target, functions)
			mu.Lock()
			outcome = outcome.Worse(o)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return outcome
}

func (s *HDBService) scanFile(ctx context.Context, scanID int64, target ScanTarget, functions []string) Outcome {
	path, err := s.fsmgr.Resolve(target.Path)
	if err != nil {
		s.logger.Error("cannot stat file, skipping", "path", target.Path, "error", err)
		s.recorder.FileFailed()
		return OutcomeFileIncomplete
	}
	if path.IsDir() {
		s.logger.Error("target is a directory, skipping", "path", path.String())
		s.recorder.FileFailed()
		return OutcomeFileIncomplete
	}

	info := path.Info()
	fileID, err := s.catalog.SupersedeAndInsertFile(ctx, &sqlc.File{
		ScanID:      scanID,
		Name:        filepath.Base(path.String()),
		Extension:   filepath.Ext(path.String()),
		Path:        path.String(),
		Size:        info.Size(),
		CreatedAt:   s.fsmgr.ChangeTime(info),
		ModifiedAt:  info.ModTime(),
		RetrievedAt: target.RetrievedAt,
		Origin:      target.Origin,
	})
	if err != nil {
		s.logger.Error("cannot record file, skipping", "path", path.String(), "error", err)
		s.recorder.FileFailed()
		return OutcomeFileIncomplete
	}
	s.recorder.FileScanned()

	digests := s.computeDigests(path, info.Size(), functions)
	outcome := OutcomeSuccess

	content := digests[hashing.ContentIdentifier]
	if s.storeDigest(ctx, fileID, path.String(), hashing.ContentIdentifier, content) {
		status := s.archive.Resolve(ctx, content.value)
		s.recorder.ArchiveResolved(status)
		if err := s.catalog.SetArchiveStatus(ctx, fileID, status); err != nil {
			s.logger.Warn("cannot record archive status", "path", path.String(), "error", err)
		}
	} else {
		outcome = OutcomeHashIncomplete
	}

	for _, fn := range functions {
		if !s.storeDigest(ctx, fileID, path.String(), fn, digests[fn]) {
			outcome = OutcomeHashIncomplete
		}
	}

	s.logger.Debug("file scanned", "path", path.String(), "file_id", fileID, "origin", target.Origin)
	return outcome
}

type digest struct {
	value string
	err   error
}

// storeDigest persists one digest and reports whether it was stored.
func (s *HDBService) storeDigest(ctx context.Context, fileID int64, path, function string, d digest) bool {
	if d.err != nil {
		s.logger.Error("hash calculation failed", "path", path, "function", function, "error", d.err)
		s.recorder.HashFailed(function)
		return false
	}
	if _, err := s.catalog.InsertHash(ctx, fileID, function, d.value); err != nil {
		s.logger.Error("cannot record hash", "path", path, "function", function, "error", err)
		s.recorder.HashFailed(function)
		return false
	}
	s.recorder.HashComputed(function)
	return true
}

// computeDigests reads the file once and feeds every accumulator from the same pass.
func (s *HDBService) computeDigests(path *Path, size int64, functions []string) map[string]digest {
	results := make(map[string]digest, len(functions)+1)

	names := []string{hashing.ContentIdentifier}
	accs := map[string]hashing.Accumulator{
		hashing.ContentIdentifier: hashing.NewContentIdentifier(size),
	}
	for _, fn := range functions {
		acc, err := hashing.New(fn)
		if err != nil {
			results[fn] = digest{err: err}
			continue
		}
		names = append(names, fn)
		accs[fn] = acc
	}

	fail := func(err error) map[string]digest {
		for _, name := range names {
			// releases fuzzy accumulators still waiting for input
			accs[name].Digest()
			results[name] = digest{err: err}
		}
		return results
	}

	f, err := s.fsmgr.Open(path)
	if err != nil {
		return fail(fmt.Errorf("opening file: %w", err))
	}
	defer f.Close()

	writers := make([]io.Writer, 0, len(names))
	for _, name := range names {
		writers = append(writers, accs[name])
	}
	if _, err := hashing.Stream(f, writers...); err != nil {
		return fail(fmt.Errorf("reading file: %w", err))
	}

	for _, name := range names {
		value, err := accs[name].Digest()
		results[name] = digest{value: value, err: err}
	}
	return results
}
