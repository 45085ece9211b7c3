package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newGitLabServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Private-Token"); got != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"401 Unauthorized"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/v4/projects/42":
			fmt.Fprint(w, `{"id":42,"name":"tools","path_with_namespace":"o/tools"}`)
		case "/api/v4/projects/42/repository/branches":
			fmt.Fprint(w, `[{"name":"main"},{"name":"feature/x"}]`)
		case "/api/v4/projects/42/repository/tree":
			if q.Get("ref") != "main" {
				http.NotFound(w, r)
				return
			}
			switch q.Get("path") {
			case "":
				fmt.Fprint(w, `[
					{"id":"a1","name":"README.md","type":"blob","path":"README.md"},
					{"id":"a2","name":"src","type":"tree","path":"src"},
					{"id":"a3","name":"lib","type":"commit","path":"lib"}
				]`)
			case "src":
				fmt.Fprint(w, `[{"id":"b1","name":"main.go","type":"blob","path":"src/main.go"}]`)
			default:
				fmt.Fprint(w, `[]`)
			}
		case "/api/v4/projects/42/repository/files/src/main.go":
			content := base64.StdEncoding.EncodeToString([]byte("package main"))
			fmt.Fprintf(w, `{"file_name":"main.go","file_path":"src/main.go","encoding":"base64",
				"content":%q,"ref":%q,"blob_id":"b1"}`, content, q.Get("ref"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGitLab(t *testing.T) {
	ctx := context.Background()
	srv := newGitLabServer(t)

	gl, err := NewGitLab("secret", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewGitLab: %v", err)
	}

	repo, err := gl.GetRepo(ctx, "42")
	if err != nil {
		t.Fatalf("GetRepo: %v", err)
	}
	if repo.Key != "42" || repo.Name != "tools" {
		t.Errorf("repo = %+v", repo)
	}

	t.Run("branches are read at their name", func(t *testing.T) {
		branches, err := gl.Branches(ctx, repo)
		if err != nil {
			t.Fatalf("Branches: %v", err)
		}
		want := []Branch{{Name: "main", Ref: "main"}, {Name: "feature/x", Ref: "feature/x"}}
		if len(branches) != 2 || branches[0] != want[0] || branches[1] != want[1] {
			t.Errorf("branches = %+v, want %+v", branches, want)
		}
	})

	t.Run("listing skips submodules", func(t *testing.T) {
		entries, err := gl.ListDirectory(ctx, repo, "main", "")
		if err != nil {
			t.Fatalf("ListDirectory: %v", err)
		}
		want := []Entry{{Name: "README.md", Path: "README.md"}, {Name: "src", Path: "src", Dir: true}}
		if len(entries) != len(want) {
			t.Fatalf("entries = %+v, want %+v", entries, want)
		}
		for i := range want {
			if entries[i] != want[i] {
				t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
			}
		}
	})

	t.Run("listing a subdirectory", func(t *testing.T) {
		entries, err := gl.ListDirectory(ctx, repo, "main", "src")
		if err != nil {
			t.Fatalf("ListDirectory: %v", err)
		}
		if len(entries) != 1 || entries[0].Path != "src/main.go" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("fetch decodes content and points at the raw blob", func(t *testing.T) {
		f, err := gl.FetchFile(ctx, repo, "main", "src/main.go")
		if err != nil {
			t.Fatalf("FetchFile: %v", err)
		}
		if string(f.Content) != "package main" {
			t.Errorf("content = %q", f.Content)
		}
		want := srv.URL + "/api/v4/projects/42/repository/blobs/b1/raw"
		if f.OriginURL != want {
			t.Errorf("origin = %q, want %q", f.OriginURL, want)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := gl.FetchFile(ctx, repo, "main", "nope.txt"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		content  string
		want     string
		wantErr  bool
	}{
		{"base64", "base64", base64.StdEncoding.EncodeToString([]byte("abc")), "abc", false},
		{"plain text", "text", "abc", "abc", false},
		{"no encoding", "", "abc", "abc", false},
		{"invalid base64", "base64", "!!!", "", true},
		{"unknown encoding", "rot13", "abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeContent(tt.encoding, tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
