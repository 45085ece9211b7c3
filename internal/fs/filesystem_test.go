package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// writeTree creates files (with parent directories) under root.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(f), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func relPaths(t *testing.T, m *OSFilesystemManager, root string, recursive bool) []string {
	t.Helper()
	dir, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	paths, err := m.FindFiles(dir, recursive)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}

	var out []string
	for _, p := range paths {
		rel, err := filepath.Rel(root, p.String())
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	m := NewOSFilesystemManager(nil)

	t.Run("regular file", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt")

		p, err := m.Resolve(filepath.Join(root, "a.txt"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.IsDir() {
			t.Error("IsDir() = true, want false")
		}
		if p.Info().Size() != int64(len("a.txt")) {
			t.Errorf("Size = %d, want %d", p.Info().Size(), len("a.txt"))
		}
	})

	t.Run("missing path", func(t *testing.T) {
		if _, err := m.Resolve(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("Resolve() expected error for missing path")
		}
	})

	t.Run("explicit symlink is followed", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "target.txt")
		link := filepath.Join(root, "link.txt")
		if err := os.Symlink(filepath.Join(root, "target.txt"), link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		p, err := m.Resolve(link)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.IsDir() || !p.Info().Mode().IsRegular() {
			t.Errorf("resolved symlink mode = %v, want regular file", p.Info().Mode())
		}
	})
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	t.Run("non-recursive lists immediate files", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt", "sub/b.txt")

		got := relPaths(t, NewOSFilesystemManager(nil), root, false)
		if want := []string{"a.txt"}; !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("recursive descends", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt", "sub/b.txt", "sub/deeper/c.txt")

		got := relPaths(t, NewOSFilesystemManager(nil), root, true)
		if want := []string{"a.txt", "sub/b.txt", "sub/deeper/c.txt"}; !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("config patterns are applied", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt", "debug.log", "cache/x.bin")

		got := relPaths(t, NewOSFilesystemManager([]string{"*.log", "cache/"}), root, true)
		if want := []string{"a.txt"}; !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("ignore file in root is applied and skipped", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt", "b.tmp")
		if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("*.tmp\n"), 0644); err != nil {
			t.Fatal(err)
		}

		got := relPaths(t, NewOSFilesystemManager(nil), root, true)
		if want := []string{"a.txt"}; !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("symlinks inside directory are skipped", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt")
		if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		got := relPaths(t, NewOSFilesystemManager(nil), root, true)
		if want := []string{"a.txt"}; !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("file path is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "a.txt")
		m := NewOSFilesystemManager(nil)

		p, err := m.Resolve(filepath.Join(root, "a.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.FindFiles(p, true); err == nil {
			t.Error("FindFiles() expected error for a file")
		}
	})
}

func TestOSFilesystemManager_ChangeTime(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt")
	m := NewOSFilesystemManager(nil)

	p, err := m.Resolve(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if m.ChangeTime(p.Info()).IsZero() {
		t.Error("ChangeTime() returned zero time")
	}
}
