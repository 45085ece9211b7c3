package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"hashesdb/internal/hdb"
)

// Mirror downloads every branch of the requested repositories below a root
// directory and reports the written files as scan targets.
//
// Layout: <root>/<repo name>/<branch name>/<path in repo>. When the repo
// folder already exists the first free "<name>(n)" is used instead, so an
// earlier mirror is never overwritten.
type Mirror struct {
	platform Platform
	workers  int
	logger   hdb.Logger
	clock    hdb.Clock
}

// NewMirror creates a mirror. workers bounds concurrent file downloads.
func NewMirror(platform Platform, workers int, logger hdb.Logger, clock hdb.Clock) *Mirror {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = hdb.NewNopLogger()
	}
	if clock == nil {
		clock = hdb.RealClock{}
	}
	return &Mirror{platform: platform, workers: workers, logger: logger, clock: clock}
}

// Download implements hdb.RemoteSource. Repositories, branches, listings and
// files that fail are logged and counted; the rest is still mirrored.
func (m *Mirror) Download(ctx context.Context, ids []string, root string, recursive bool) hdb.Resolution {
	var res hdb.Resolution
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		m.logger.Error("cannot create download directory", "path", root, "error", err)
		res.Failures = len(ids)
		return res
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		m.downloadRepo(ctx, id, root, recursive, &res)
	}
	return res
}

func (m *Mirror) downloadRepo(ctx context.Context, id, root string, recursive bool, res *hdb.Resolution) {
	platform := m.platform.Name()

	repo, err := m.platform.GetRepo(ctx, id)
	if err != nil {
		m.logger.Error("cannot fetch repository, skipping", "platform", platform, "repo", id, "error", err)
		res.Failures++
		return
	}

	folder, err := createRepoFolder(root, repo.Name)
	if err != nil {
		m.logger.Error("cannot create repository folder, skipping", "repo", id, "error", err)
		res.Failures++
		return
	}

	branches, err := m.platform.Branches(ctx, repo)
	if err != nil {
		m.logger.Error("cannot list branches, skipping", "platform", platform, "repo", id, "error", err)
		res.Failures++
		return
	}
	m.logger.Info("mirroring repository", "platform", platform, "repo", id, "folder", folder, "branches", len(branches))

	for _, branch := range branches {
		if ctx.Err() != nil {
			return
		}
		branchDir := filepath.Join(folder, filepath.FromSlash(branch.Name))
		if err := os.MkdirAll(branchDir, 0755); err != nil {
			m.logger.Error("cannot create branch folder, skipping", "repo", id, "branch", branch.Name, "error", err)
			res.Failures++
			continue
		}

		files, failures := m.listFiles(ctx, repo, branch.Ref, "", recursive)
		res.Failures += failures

		targets, failures := m.fetchFiles(ctx, repo, branch.Ref, branchDir, files)
		res.Targets = append(res.Targets, targets...)
		res.Failures += failures
	}
}

// listFiles returns the file entries under path, descending into
// subdirectories only when recursive is set.
func (m *Mirror) listFiles(ctx context.Context, repo *Repo, ref, path string, recursive bool) ([]Entry, int) {
	entries, err := m.platform.ListDirectory(ctx, repo, ref, path)
	if err != nil {
		m.logger.Error("cannot list remote directory, skipping", "repo", repo.Key, "ref", ref, "path", path, "error", err)
		return nil, 1
	}

	var files []Entry
	failures := 0
	for _, e := range entries {
		if !e.Dir {
			files = append(files, e)
			continue
		}
		if !recursive || ctx.Err() != nil {
			continue
		}
		sub, n := m.listFiles(ctx, repo, ref, e.Path, recursive)
		files = append(files, sub...)
		failures += n
	}
	return files, failures
}

func (m *Mirror) fetchFiles(ctx context.Context, repo *Repo, ref, dir string, files []Entry) ([]hdb.ScanTarget, int) {
	var (
		mu       sync.Mutex
		targets  []hdb.ScanTarget
		failures int
	)

	var g errgroup.Group
	g.SetLimit(m.workers)

	for _, entry := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			target, err := m.fetchFile(ctx, repo, ref, dir, entry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				m.logger.Error("download failed, skipping", "repo", repo.Key, "path", entry.Path, "error", err)
				failures++
				return nil
			}
			targets = append(targets, target)
			return nil
		})
	}
	g.Wait()

	return targets, failures
}

func (m *Mirror) fetchFile(ctx context.Context, repo *Repo, ref, dir string, entry Entry) (hdb.ScanTarget, error) {
	local, err := localPath(dir, entry.Path)
	if err != nil {
		return hdb.ScanTarget{}, err
	}

	f, err := m.platform.FetchFile(ctx, repo, ref, entry.Path)
	if err != nil {
		return hdb.ScanTarget{}, err
	}

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return hdb.ScanTarget{}, fmt.Errorf("creating folder: %w", err)
	}
	if err := os.WriteFile(local, f.Content, 0644); err != nil {
		return hdb.ScanTarget{}, fmt.Errorf("writing %s: %w", local, err)
	}

	m.logger.Debug("downloaded", "repo", repo.Key, "path", entry.Path, "bytes", len(f.Content))
	return hdb.ScanTarget{Path: local, Origin: f.OriginURL, RetrievedAt: m.clock.Now()}, nil
}

// localPath maps a repository path below dir, refusing paths that would escape it.
func localPath(dir, repoPath string) (string, error) {
	local := filepath.Join(dir, filepath.FromSlash(repoPath))
	rel, err := filepath.Rel(dir, local)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("remote path %q escapes the mirror folder", repoPath)
	}
	return local, nil
}

// createRepoFolder creates <root>/<name>, or the first free <root>/<name>(n).
func createRepoFolder(root, name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid repository name %q", name)
	}

	base := filepath.Join(root, name)
	candidate := base
	for n := 1; ; n++ {
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("creating %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s(%d)", base, n)
	}
}

var _ hdb.RemoteSource = (*Mirror)(nil)
