package hdb_test

import (
	"context"
	"reflect"
	"testing"

	"hashesdb/internal/hdb"
	"hashesdb/internal/testutil"
)

func TestHDBService_SearchDuplicates(t *testing.T) {
	f := newScanFixture(t, hdb.ServiceOptions{})
	shared := []byte("shared content")
	f.fsmgr.AddFile("/data/a.txt", shared)
	f.fsmgr.AddFile("/data/copy/a-copy.txt", shared)
	f.fsmgr.AddFile("/data/unique.txt", []byte("unique"))
	f.scan(t, hdb.ScanRequest{Local: []string{"/data"}, Recursive: true})

	f.fsmgr.AddFile("/incoming/new.txt", shared)
	f.fsmgr.AddFile("/incoming/fresh.txt", []byte("never scanned"))
	f.fsmgr.AddDirectory("/incoming/dir")

	groups, err := f.svc.SearchDuplicates(context.Background(), []string{
		"/incoming/new.txt", "/incoming/fresh.txt", "/incoming/dir", "/incoming/missing.txt",
	})
	if err != nil {
		t.Fatalf("SearchDuplicates() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("SearchDuplicates() returned %d groups, want 2", len(groups))
	}

	if groups[0].Identifier != testutil.ContentIdentifier(shared) {
		t.Errorf("Identifier = %q, want %q", groups[0].Identifier, testutil.ContentIdentifier(shared))
	}
	var paths []string
	for _, m := range groups[0].Matches {
		paths = append(paths, m.Path)
	}
	if want := []string{"/data/a.txt", "/data/copy/a-copy.txt"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("matches = %v, want %v", paths, want)
	}
	if len(groups[1].Matches) != 0 {
		t.Errorf("fresh.txt matches = %d, want 0", len(groups[1].Matches))
	}
}

func TestHDBService_SearchDuplicates_IgnoresSuperseded(t *testing.T) {
	f := newScanFixture(t, hdb.ServiceOptions{})
	old := []byte("old content")
	f.fsmgr.AddFile("/data/a.txt", old)
	f.scan(t, hdb.ScanRequest{Local: []string{"/data/a.txt"}})

	f.fsmgr.AddFile("/data/a.txt", []byte("new content"))
	f.scan(t, hdb.ScanRequest{Local: []string{"/data/a.txt"}})

	f.fsmgr.AddFile("/probe.txt", old)
	groups, err := f.svc.SearchDuplicates(context.Background(), []string{"/probe.txt"})
	if err != nil {
		t.Fatalf("SearchDuplicates() error = %v", err)
	}
	if len(groups) != 1 || len(groups[0].Matches) != 0 {
		t.Errorf("superseded record reported as duplicate: %+v", groups)
	}
}

func TestHDBService_Search(t *testing.T) {
	f := newScanFixture(t, hdb.ServiceOptions{})
	f.fsmgr.AddFile("/data/a.txt", []byte("alpha"))
	f.fsmgr.AddFile("/data/b.txt", []byte("beta"))
	f.fsmgr.AddFile("/data/c.txt", []byte("gamma"))
	f.scan(t, hdb.ScanRequest{Local: []string{"/data"}, HashFunctions: []string{"md5"}})
	ctx := context.Background()

	t.Run("by hash value", func(t *testing.T) {
		got, err := f.svc.Search(ctx, []string{testutil.MD5Hex([]byte("beta"))}, nil)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].Path != "/data/b.txt" {
			t.Errorf("Search() = %v, want b.txt", got)
		}
	})

	t.Run("by name", func(t *testing.T) {
		got, err := f.svc.Search(ctx, nil, []string{"c.txt"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].Path != "/data/c.txt" {
			t.Errorf("Search() = %v, want c.txt", got)
		}
	})

	t.Run("criteria are combined with or", func(t *testing.T) {
		got, err := f.svc.Search(ctx,
			[]string{testutil.ContentIdentifier([]byte("alpha"))},
			[]string{"c.txt", "a.txt"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 2 || got[0].Path != "/data/a.txt" || got[1].Path != "/data/c.txt" {
			t.Errorf("Search() = %v, want a.txt and c.txt", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		got, err := f.svc.Search(ctx, []string{"deadbeef"}, []string{"nothing"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Search() = %v, want empty", got)
		}
	})
}
