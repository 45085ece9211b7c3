package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"hashesdb/internal/hdb"
)

// GitHub reads repositories through the GitHub REST API.
// Repository ids are "owner/name"; branches are read at their head commit.
type GitHub struct {
	client *github.Client
}

// NewGitHub creates a GitHub adapter. An empty baseURL selects api.github.com.
func NewGitHub(token, baseURL string, httpClient *http.Client) (*GitHub, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	client := github.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing github base url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHub{client: client}, nil
}

func (g *GitHub) Name() string { return hdb.PlatformGitHub }

func splitRepoKey(key string) (string, string, error) {
	owner, name, ok := strings.Cut(key, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("github repository must be owner/name, got %q", key)
	}
	return owner, name, nil
}

func (g *GitHub) GetRepo(ctx context.Context, id string) (*Repo, error) {
	owner, name, err := splitRepoKey(id)
	if err != nil {
		return nil, err
	}
	r, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("getting repository %s: %w", id, err)
	}
	return &Repo{Key: owner + "/" + name, Name: r.GetName()}, nil
}

func (g *GitHub) Branches(ctx context.Context, repo *Repo) ([]Branch, error) {
	owner, name, err := splitRepoKey(repo.Key)
	if err != nil {
		return nil, err
	}

	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var out []Branch
	for {
		branches, resp, err := g.client.Repositories.ListBranches(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing branches of %s: %w", repo.Key, err)
		}
		for _, b := range branches {
			out = append(out, Branch{Name: b.GetName(), Ref: b.GetCommit().GetSHA()})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHub) ListDirectory(ctx context.Context, repo *Repo, ref, path string) ([]Entry, error) {
	owner, name, err := splitRepoKey(repo.Key)
	if err != nil {
		return nil, err
	}

	_, contents, _, err := g.client.Repositories.GetContents(ctx, owner, name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s: %w", repo.Key, path, err)
	}

	entries := make([]Entry, 0, len(contents))
	for _, c := range contents {
		if c.GetType() == "submodule" {
			continue
		}
		entries = append(entries, Entry{Name: c.GetName(), Path: c.GetPath(), Dir: c.GetType() == "dir"})
	}
	return entries, nil
}

func (g *GitHub) FetchFile(ctx context.Context, repo *Repo, ref, path string) (*File, error) {
	owner, name, err := splitRepoKey(repo.Key)
	if err != nil {
		return nil, err
	}
	opts := &github.RepositoryContentGetOptions{Ref: ref}

	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, name, path, opts)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", repo.Key, path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s/%s is not a file", repo.Key, path)
	}

	var content []byte
	if file.GetEncoding() == "none" {
		// the contents API leaves files above 1MB empty
		rc, _, err := g.client.Repositories.DownloadContents(ctx, owner, name, path, opts)
		if err != nil {
			return nil, fmt.Errorf("downloading %s/%s: %w", repo.Key, path, err)
		}
		defer rc.Close()
		if content, err = io.ReadAll(rc); err != nil {
			return nil, fmt.Errorf("downloading %s/%s: %w", repo.Key, path, err)
		}
	} else {
		decoded, err := file.GetContent()
		if err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", repo.Key, path, err)
		}
		content = []byte(decoded)
	}

	return &File{Content: content, OriginURL: file.GetDownloadURL()}, nil
}

var _ Platform = (*GitHub)(nil)
