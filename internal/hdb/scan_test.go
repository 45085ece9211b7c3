package hdb_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"hashesdb/internal/database"
	"hashesdb/internal/hdb"
	"hashesdb/internal/testutil"
)

type scanFixture struct {
	svc      *hdb.HDBService
	db       *database.SQLiteDatabase
	fsmgr    *testutil.MockFilesystemManager
	archive  *testutil.FakeArchiveResolver
	recorder *testutil.CountingRecorder
	clock    *testutil.StubClock
}

func newScanFixture(t *testing.T, opts hdb.ServiceOptions) *scanFixture {
	t.Helper()
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabase(t, clock)
	fsmgr := testutil.NewMockFilesystemManager()
	archive := &testutil.FakeArchiveResolver{Default: hdb.ArchiveNotKnown}
	recorder := testutil.NewCountingRecorder()

	opts.Hostname = "testhost"
	if opts.Archive == nil {
		opts.Archive = archive
	}
	opts.Recorder = recorder

	return &scanFixture{
		svc:      hdb.NewHDBService(db, fsmgr, nil, clock, opts),
		db:       db,
		fsmgr:    fsmgr,
		archive:  archive,
		recorder: recorder,
		clock:    clock,
	}
}

func (f *scanFixture) scan(t *testing.T, req hdb.ScanRequest) *hdb.ScanResult {
	t.Helper()
	res, err := f.svc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return res
}

func (f *scanFixture) hashesOf(t *testing.T, path string) map[string]string {
	t.Helper()
	ctx := context.Background()
	files, err := f.db.FindFilesByPath(ctx, path, "testhost")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatalf("no record for %s", path)
	}
	hashes, err := f.db.FindHashesForFile(ctx, files[len(files)-1].ID)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]string, len(hashes))
	for _, h := range hashes {
		out[h.FunctionName] = h.Value
	}
	return out
}

func TestHDBService_Scan(t *testing.T) {
	t.Run("hashes a single file", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		content := []byte("hello world\n")
		f.fsmgr.AddFile("/data/hello.txt", content)

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/hello.txt"},
			HashFunctions: []string{"md5"},
			Command:       "hashesdb scan -l /data/hello.txt -H md5",
		})

		if res.Outcome != hdb.OutcomeSuccess {
			t.Errorf("Outcome = %v, want success", res.Outcome)
		}
		if res.ID != 1 || res.Targets != 1 || res.Failures != 0 {
			t.Errorf("result = %+v, want id 1, 1 target, 0 failures", res)
		}

		hashes := f.hashesOf(t, "/data/hello.txt")
		if hashes["md5"] != testutil.MD5Hex(content) {
			t.Errorf("md5 = %q, want %q", hashes["md5"], testutil.MD5Hex(content))
		}
		if hashes["swhid"] != testutil.ContentIdentifier(content) {
			t.Errorf("swhid = %q, want %q", hashes["swhid"], testutil.ContentIdentifier(content))
		}

		scan, err := f.db.GetScan(context.Background(), res.ID)
		if err != nil {
			t.Fatal(err)
		}
		if hdb.Outcome(scan.ReturnCode) != hdb.OutcomeSuccess {
			t.Errorf("stored ReturnCode = %d, want 0", scan.ReturnCode)
		}
		if scan.Hostname != "testhost" || scan.Command != "hashesdb scan -l /data/hello.txt -H md5" {
			t.Errorf("scan row = %+v", scan)
		}
	})

	t.Run("records file metadata and archive status", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		content := []byte("known content")
		f.archive.Known = map[string]hdb.ArchiveStatus{testutil.ContentIdentifier(content): hdb.ArchiveKnown}
		f.fsmgr.AddFile("/data/report.final.pdf", content)

		f.scan(t, hdb.ScanRequest{Local: []string{"/data/report.final.pdf"}})

		files, err := f.db.FindFilesByPath(context.Background(), "/data/report.final.pdf", "testhost")
		if err != nil || len(files) != 1 {
			t.Fatalf("FindFilesByPath() = %v, %v", files, err)
		}
		got := files[0]
		if got.Name != "report.final.pdf" || got.Extension != ".pdf" {
			t.Errorf("Name/Extension = %q/%q", got.Name, got.Extension)
		}
		if got.Size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", got.Size, len(content))
		}
		if !got.RetrievedAt.Equal(f.clock.Now()) {
			t.Errorf("RetrievedAt = %v, want %v", got.RetrievedAt, f.clock.Now())
		}
		if hdb.ArchiveStatusFromNullBool(got.SwhKnown) != hdb.ArchiveKnown {
			t.Errorf("archive status = %v, want known", hdb.ArchiveStatusFromNullBool(got.SwhKnown))
		}
		if f.recorder.ArchiveStatus[hdb.ArchiveKnown] != 1 {
			t.Errorf("recorded archive statuses = %v", f.recorder.ArchiveStatus)
		}
	})

	t.Run("missing target lowers outcome but scans the rest", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddFile("/data/a.txt", []byte("a"))

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/missing.txt", "/data/a.txt"},
			HashFunctions: []string{"sha1"},
		})

		if res.Outcome != hdb.OutcomeFileIncomplete {
			t.Errorf("Outcome = %v, want file incomplete", res.Outcome)
		}
		if res.Failures != 1 || res.Targets != 1 {
			t.Errorf("result = %+v, want 1 target, 1 failure", res)
		}
		if _, ok := f.hashesOf(t, "/data/a.txt")["sha1"]; !ok {
			t.Error("a.txt was not hashed")
		}
	})

	t.Run("failed fuzzy hash is hash incomplete", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddFile("/data/empty.txt", []byte{})

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/empty.txt"},
			HashFunctions: []string{"md5", "tlsh"},
		})

		if res.Outcome != hdb.OutcomeHashIncomplete {
			t.Errorf("Outcome = %v, want hash incomplete", res.Outcome)
		}
		hashes := f.hashesOf(t, "/data/empty.txt")
		if _, ok := hashes["md5"]; !ok {
			t.Error("md5 missing although it succeeded")
		}
		if _, ok := hashes["tlsh"]; ok {
			t.Error("tlsh stored although it failed")
		}
		if f.recorder.HashesFailed["tlsh"] != 1 {
			t.Errorf("HashesFailed = %v", f.recorder.HashesFailed)
		}
	})

	t.Run("small file gets an ssdeep digest", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddFile("/data/small.go", []byte("package main\n\nfunc main() {}\n"))

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/small.go"},
			HashFunctions: []string{"ssdeep", "tlsh"},
		})

		if res.Outcome != hdb.OutcomeSuccess {
			t.Errorf("Outcome = %v, want success", res.Outcome)
		}
		hashes := f.hashesOf(t, "/data/small.go")
		if v := hashes["ssdeep"]; !strings.HasPrefix(v, "3:") || strings.Count(v, ":") != 2 {
			t.Errorf("ssdeep = %q, want 3:<hash>:<hash>", v)
		}
		if hashes["tlsh"] == "" {
			t.Error("tlsh missing for small file")
		}
	})

	t.Run("read error keeps the file record", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddUnreadableFile("/data/broken.bin", []byte("partial"))

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/broken.bin"},
			HashFunctions: []string{"sha256"},
		})

		if res.Outcome != hdb.OutcomeHashIncomplete {
			t.Errorf("Outcome = %v, want hash incomplete", res.Outcome)
		}
		if hashes := f.hashesOf(t, "/data/broken.bin"); len(hashes) != 0 {
			t.Errorf("hashes = %v, want none", hashes)
		}
		if len(f.archive.Calls()) != 0 {
			t.Error("archive consulted without a content identifier")
		}
	})

	t.Run("read error with fuzzy hashes requested", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddUnreadableFile("/data/broken.bin", []byte("partial"))

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/broken.bin"},
			HashFunctions: []string{"ssdeep", "tlsh"},
		})

		if res.Outcome != hdb.OutcomeHashIncomplete {
			t.Errorf("Outcome = %v, want hash incomplete", res.Outcome)
		}
		if f.recorder.HashesFailed["ssdeep"] != 1 || f.recorder.HashesFailed["tlsh"] != 1 {
			t.Errorf("HashesFailed = %v", f.recorder.HashesFailed)
		}
	})

	t.Run("file incomplete outranks hash incomplete", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddFile("/data/empty.txt", []byte{})

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/empty.txt", "/data/gone.txt"},
			HashFunctions: []string{"tlsh"},
		})
		if res.Outcome != hdb.OutcomeFileIncomplete {
			t.Errorf("Outcome = %v, want file incomplete", res.Outcome)
		}
	})

	t.Run("unknown hash function is dropped", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddFile("/data/a.txt", []byte("a"))

		res := f.scan(t, hdb.ScanRequest{
			Local:         []string{"/data/a.txt"},
			HashFunctions: []string{"crc32", "md5"},
		})
		if res.Outcome != hdb.OutcomeSuccess {
			t.Errorf("Outcome = %v, want success", res.Outcome)
		}
		if hashes := f.hashesOf(t, "/data/a.txt"); len(hashes) != 2 {
			t.Errorf("hashes = %v, want md5 and swhid", hashes)
		}
	})

	t.Run("directory recursion", func(t *testing.T) {
		for _, tt := range []struct {
			recursive bool
			want      int
		}{
			{recursive: false, want: 1},
			{recursive: true, want: 2},
		} {
			t.Run(fmt.Sprintf("recursive=%v", tt.recursive), func(t *testing.T) {
				f := newScanFixture(t, hdb.ServiceOptions{})
				f.fsmgr.AddFile("/data/a.txt", []byte("a"))
				f.fsmgr.AddFile("/data/sub/b.txt", []byte("b"))

				res := f.scan(t, hdb.ScanRequest{Local: []string{"/data"}, Recursive: tt.recursive})
				if res.Targets != tt.want {
					t.Errorf("Targets = %d, want %d", res.Targets, tt.want)
				}
				if f.recorder.FilesScanned != tt.want {
					t.Errorf("FilesScanned = %d, want %d", f.recorder.FilesScanned, tt.want)
				}
			})
		}
	})

	t.Run("rescan supersedes previous record", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		f.fsmgr.AddFile("/data/a.txt", []byte("v1"))
		first := f.scan(t, hdb.ScanRequest{Local: []string{"/data/a.txt"}})

		f.clock.Advance(time.Hour)
		f.fsmgr.AddFile("/data/a.txt", []byte("version 2"))
		second := f.scan(t, hdb.ScanRequest{Local: []string{"/data/a.txt"}})

		if second.ID != first.ID+1 {
			t.Errorf("scan ids = %d, %d, want consecutive", first.ID, second.ID)
		}

		files, err := f.db.FindFilesByPath(context.Background(), "/data/a.txt", "testhost")
		if err != nil {
			t.Fatal(err)
		}
		if len(files) != 2 {
			t.Fatalf("records = %d, want 2", len(files))
		}
		if files[0].IsCurrent || !files[1].IsCurrent {
			t.Errorf("IsCurrent = %v, %v, want false, true", files[0].IsCurrent, files[1].IsCurrent)
		}
		if files[1].ScanID != second.ID {
			t.Errorf("current record ScanID = %d, want %d", files[1].ScanID, second.ID)
		}
	})

	t.Run("parallel workers hash every file", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{Workers: 4})
		var paths []string
		for i := range 20 {
			p := fmt.Sprintf("/data/f%02d.txt", i)
			f.fsmgr.AddFile(p, []byte(p))
			paths = append(paths, p)
		}

		res := f.scan(t, hdb.ScanRequest{Local: paths, HashFunctions: []string{"sha1", "xxh64"}})
		if res.Outcome != hdb.OutcomeSuccess {
			t.Errorf("Outcome = %v, want success", res.Outcome)
		}

		info, err := f.db.Info(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if info.FileCount != 20 || info.HashCount != 60 {
			t.Errorf("counts = %d files, %d hashes, want 20, 60", info.FileCount, info.HashCount)
		}
	})

	t.Run("remote targets use their origin", func(t *testing.T) {
		remote := &testutil.FakeRemoteSource{}
		f := newScanFixture(t, hdb.ServiceOptions{
			Remotes: map[string]hdb.RemoteSource{hdb.PlatformGitHub: remote},
		})
		f.fsmgr.AddFile("/dl/repo/main/README.md", []byte("# repo"))
		origin := "https://raw.githubusercontent.com/o/repo/abc/README.md"
		remote.Result = hdb.Resolution{
			Targets:  []hdb.ScanTarget{{Path: "/dl/repo/main/README.md", Origin: origin, RetrievedAt: f.clock.Now()}},
			Failures: 1,
		}

		res := f.scan(t, hdb.ScanRequest{
			Remote:      map[string][]string{hdb.PlatformGitHub: {"o/repo", "o/missing"}},
			DownloadDir: "/dl",
		})

		if res.Outcome != hdb.OutcomeFileIncomplete {
			t.Errorf("Outcome = %v, want file incomplete", res.Outcome)
		}
		if got := remote.Requested(); len(got) != 2 || remote.Root() != "/dl" {
			t.Errorf("Download called with %v at %q", got, remote.Root())
		}
		files, err := f.db.FindFilesByPath(context.Background(), "/dl/repo/main/README.md", origin)
		if err != nil || len(files) != 1 {
			t.Errorf("remote record = %v, %v", files, err)
		}
	})

	t.Run("unconfigured platform counts as failure", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		res := f.scan(t, hdb.ScanRequest{Remote: map[string][]string{hdb.PlatformGitLab: {"42"}}})

		if res.Outcome != hdb.OutcomeFileIncomplete || res.Failures != 1 {
			t.Errorf("result = %+v, want file incomplete with 1 failure", res)
		}
	})

	t.Run("cancellation stops new files", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		remote := &cancellingSource{cancel: cancel}
		f := newScanFixture(t, hdb.ServiceOptions{
			Remotes: map[string]hdb.RemoteSource{hdb.PlatformGitHub: remote},
		})
		f.fsmgr.AddFile("/dl/repo/a.txt", []byte("a"))
		remote.result = hdb.Resolution{Targets: []hdb.ScanTarget{{Path: "/dl/repo/a.txt", Origin: "https://example.com/a.txt"}}}

		res, err := f.svc.Scan(ctx, hdb.ScanRequest{Remote: map[string][]string{hdb.PlatformGitHub: {"o/repo"}}})
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if res.Outcome != hdb.OutcomeFileIncomplete {
			t.Errorf("Outcome = %v, want file incomplete", res.Outcome)
		}
		if f.recorder.FilesScanned != 0 {
			t.Errorf("FilesScanned = %d, want 0", f.recorder.FilesScanned)
		}

		scan, err := f.db.GetScan(context.Background(), res.ID)
		if err != nil {
			t.Fatal(err)
		}
		if hdb.Outcome(scan.ReturnCode) != hdb.OutcomeFileIncomplete {
			t.Errorf("stored ReturnCode = %d, want %d", scan.ReturnCode, hdb.OutcomeFileIncomplete)
		}
	})

	t.Run("cancelled before start aborts", func(t *testing.T) {
		f := newScanFixture(t, hdb.ServiceOptions{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := f.svc.Scan(ctx, hdb.ScanRequest{Local: []string{"/data"}}); !errors.Is(err, hdb.ErrCatalogMetadata) {
			t.Errorf("Scan() error = %v, want ErrCatalogMetadata", err)
		}
	})
}

// cancellingSource cancels the scan while its targets are being resolved.
type cancellingSource struct {
	cancel func()
	result hdb.Resolution
}

func (c *cancellingSource) Download(context.Context, []string, string, bool) hdb.Resolution {
	c.cancel()
	return c.result
}

func TestOutcome_Worse(t *testing.T) {
	tests := []struct {
		a, b, want hdb.Outcome
	}{
		{hdb.OutcomeSuccess, hdb.OutcomeSuccess, hdb.OutcomeSuccess},
		{hdb.OutcomeSuccess, hdb.OutcomeHashIncomplete, hdb.OutcomeHashIncomplete},
		{hdb.OutcomeFileIncomplete, hdb.OutcomeHashIncomplete, hdb.OutcomeFileIncomplete},
		{hdb.OutcomeRunning, hdb.OutcomeSuccess, hdb.OutcomeSuccess},
		{hdb.OutcomeHashIncomplete, hdb.OutcomeRunning, hdb.OutcomeHashIncomplete},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%v", tt.a, tt.b), func(t *testing.T) {
			if got := tt.a.Worse(tt.b); got != tt.want {
				t.Errorf("Worse() = %v, want %v", got, tt.want)
			}
		})
	}
}
