package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"hashesdb/internal/hdb"
	"hashesdb/internal/testutil"
)

// fakePlatform serves repositories from memory. Files are keyed by
// "<repo>@<ref>:<path>"; a path ending in "/" marks a directory.
type fakePlatform struct {
	repos    map[string]string // id -> name
	branches map[string][]Branch
	files    map[string]string
	failing  map[string]bool // paths whose fetch fails
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		repos:    map[string]string{"o/tools": "tools"},
		branches: map[string][]Branch{"o/tools": {{Name: "main", Ref: "sha-main"}, {Name: "dev", Ref: "sha-dev"}}},
		files: map[string]string{
			"o/tools@sha-main:README.md":    "readme",
			"o/tools@sha-main:src/":         "",
			"o/tools@sha-main:src/main.go":  "package main",
			"o/tools@sha-main:src/lib/":     "",
			"o/tools@sha-main:src/lib/x.go": "package lib",
			"o/tools@sha-dev:README.md":     "readme dev",
		},
		failing: map[string]bool{},
	}
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) GetRepo(_ context.Context, id string) (*Repo, error) {
	name, ok := f.repos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &Repo{Key: id, Name: name}, nil
}

func (f *fakePlatform) Branches(_ context.Context, repo *Repo) ([]Branch, error) {
	return f.branches[repo.Key], nil
}

func (f *fakePlatform) ListDirectory(_ context.Context, repo *Repo, ref, path string) ([]Entry, error) {
	prefix := repo.Key + "@" + ref + ":"
	if path != "" {
		prefix += path + "/"
	}
	var entries []Entry
	for key := range f.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		dir := strings.HasSuffix(rest, "/")
		rest = strings.TrimSuffix(rest, "/")
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		full := rest
		if path != "" {
			full = path + "/" + rest
		}
		entries = append(entries, Entry{Name: rest, Path: full, Dir: dir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *fakePlatform) FetchFile(_ context.Context, repo *Repo, ref, path string) (*File, error) {
	if f.failing[path] {
		return nil, errors.New("server error")
	}
	content, ok := f.files[repo.Key+"@"+ref+":"+path]
	if !ok {
		return nil, errors.New("not found")
	}
	return &File{Content: []byte(content), OriginURL: "https://raw.example/" + ref + "/" + path}, nil
}

func targetPaths(t *testing.T, root string, res hdb.Resolution) []string {
	t.Helper()
	var paths []string
	for _, target := range res.Targets {
		rel, err := filepath.Rel(root, target.Path)
		if err != nil {
			t.Fatalf("Rel: %v", err)
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	sort.Strings(paths)
	return paths
}

func TestMirror_Download(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock()

	t.Run("recursive mirror of every branch", func(t *testing.T) {
		root := t.TempDir()
		m := NewMirror(newFakePlatform(), 2, nil, clock)

		res := m.Download(ctx, []string{"o/tools"}, root, true)

		if res.Failures != 0 {
			t.Errorf("failures = %d, want 0", res.Failures)
		}
		want := []string{"tools/dev/README.md", "tools/main/README.md", "tools/main/src/lib/x.go", "tools/main/src/main.go"}
		got := targetPaths(t, root, res)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("targets = %v, want %v", got, want)
		}

		data, err := os.ReadFile(filepath.Join(root, "tools", "main", "src", "main.go"))
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(data) != "package main" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("targets carry origin and retrieval time", func(t *testing.T) {
		root := t.TempDir()
		m := NewMirror(newFakePlatform(), 1, nil, clock)

		res := m.Download(ctx, []string{"o/tools"}, root, false)
		for _, target := range res.Targets {
			if !strings.HasPrefix(target.Origin, "https://raw.example/sha-") {
				t.Errorf("origin = %q", target.Origin)
			}
			if !target.RetrievedAt.Equal(clock.Now()) {
				t.Errorf("retrieved at = %v, want %v", target.RetrievedAt, clock.Now())
			}
		}
	})

	t.Run("non-recursive skips directories", func(t *testing.T) {
		root := t.TempDir()
		m := NewMirror(newFakePlatform(), 1, nil, clock)

		res := m.Download(ctx, []string{"o/tools"}, root, false)

		want := []string{"tools/dev/README.md", "tools/main/README.md"}
		got := targetPaths(t, root, res)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("targets = %v, want %v", got, want)
		}
		if _, err := os.Stat(filepath.Join(root, "tools", "main", "src")); !os.IsNotExist(err) {
			t.Errorf("src folder should not exist, stat err = %v", err)
		}
	})

	t.Run("existing folder gets a numbered suffix", func(t *testing.T) {
		root := t.TempDir()
		m := NewMirror(newFakePlatform(), 1, nil, clock)

		m.Download(ctx, []string{"o/tools"}, root, false)
		res := m.Download(ctx, []string{"o/tools"}, root, false)

		got := targetPaths(t, root, res)
		if len(got) != 2 || !strings.HasPrefix(got[0], "tools(1)/") {
			t.Errorf("targets = %v, want entries under tools(1)", got)
		}

		res = m.Download(ctx, []string{"o/tools"}, root, false)
		got = targetPaths(t, root, res)
		if len(got) != 2 || !strings.HasPrefix(got[0], "tools(2)/") {
			t.Errorf("targets = %v, want entries under tools(2)", got)
		}
	})

	t.Run("failures are counted and the rest is mirrored", func(t *testing.T) {
		root := t.TempDir()
		p := newFakePlatform()
		p.failing["src/main.go"] = true
		m := NewMirror(p, 2, nil, clock)

		res := m.Download(ctx, []string{"o/missing", "o/tools"}, root, true)

		if res.Failures != 2 {
			t.Errorf("failures = %d, want 2", res.Failures)
		}
		if len(res.Targets) != 3 {
			t.Errorf("targets = %d, want 3", len(res.Targets))
		}
	})

	t.Run("cancelled context downloads nothing", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		m := NewMirror(newFakePlatform(), 1, nil, clock)

		res := m.Download(cctx, []string{"o/tools"}, t.TempDir(), true)
		if len(res.Targets) != 0 {
			t.Errorf("targets = %d, want 0", len(res.Targets))
		}
	})
}

func TestLocalPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "main")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain file", "README.md", false},
		{"nested file", "a/b/c.txt", false},
		{"parent escape", "../other/x", true},
		{"deep escape", "a/../../x", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := localPath(dir, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("localPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err == nil && !strings.HasPrefix(got, dir+string(filepath.Separator)) {
				t.Errorf("localPath(%q) = %q, not below %q", tt.path, got, dir)
			}
		})
	}
}

func TestCreateRepoFolder_InvalidName(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"", ".", "..", "a/b"} {
		if _, err := createRepoFolder(root, name); err == nil {
			t.Errorf("createRepoFolder(%q) succeeded, want error", name)
		}
	}
}
