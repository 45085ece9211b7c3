package remote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xanzy/go-gitlab"

	"hashesdb/internal/hdb"
)

// GitLab reads projects through the GitLab v4 API.
// Project ids may be numeric or a "group/project" path; branches are read at
// their name.
type GitLab struct {
	client *gitlab.Client
}

// NewGitLab creates a GitLab adapter. An empty baseURL selects gitlab.com.
func NewGitLab(token, baseURL string, httpClient *http.Client) (*GitLab, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	opts := []gitlab.ClientOptionFunc{gitlab.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLab{client: client}, nil
}

func (g *GitLab) Name() string { return hdb.PlatformGitLab }

func (g *GitLab) GetRepo(ctx context.Context, id string) (*Repo, error) {
	p, _, err := g.client.Projects.GetProject(id, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return &Repo{Key: strconv.Itoa(p.ID), Name: p.Name}, nil
}

func (g *GitLab) Branches(ctx context.Context, repo *Repo) ([]Branch, error) {
	opts := &gitlab.ListBranchesOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}
	var out []Branch
	for {
		branches, resp, err := g.client.Branches.ListBranches(repo.Key, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing branches of project %s: %w", repo.Key, err)
		}
		for _, b := range branches {
			out = append(out, Branch{Name: b.Name, Ref: b.Name})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitLab) ListDirectory(ctx context.Context, repo *Repo, ref, path string) ([]Entry, error) {
	opts := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
		Ref:         gitlab.Ptr(ref),
	}
	if path != "" {
		opts.Path = gitlab.Ptr(path)
	}

	var entries []Entry
	for {
		nodes, resp, err := g.client.Repositories.ListTree(repo.Key, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing project %s at %q: %w", repo.Key, path, err)
		}
		for _, n := range nodes {
			// "commit" nodes are submodules
			if n.Type == "commit" {
				continue
			}
			entries = append(entries, Entry{Name: n.Name, Path: n.Path, Dir: n.Type == "tree"})
		}
		if resp.NextPage == 0 {
			return entries, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitLab) FetchFile(ctx context.Context, repo *Repo, ref, path string) (*File, error) {
	f, _, err := g.client.RepositoryFiles.GetFile(repo.Key, path,
		&gitlab.GetFileOptions{Ref: gitlab.Ptr(ref)}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching %s from project %s: %w", path, repo.Key, err)
	}

	content, err := decodeContent(f.Encoding, f.Content)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from project %s: %w", path, repo.Key, err)
	}

	origin := fmt.Sprintf("%sprojects/%s/repository/blobs/%s/raw", g.client.BaseURL().String(), repo.Key, f.BlobID)
	return &File{Content: content, OriginURL: origin}, nil
}

var _ Platform = (*GitLab)(nil)
