package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		HostID:   "test-host-abc",
		BaseDir:  "/home/user/.local/share/hashesdb",
		LogDir:   "/home/user/.local/share/hashesdb/log",
		Database: DatabaseConfig{Type: "sqlite", Path: "/home/user/.local/share/hashesdb/hashes.db"},
		Scan:     ScanConfig{Workers: 4, Recursive: true, Timeout: Duration(10 * time.Minute)},
		GitLab:   RemoteConfig{BaseURL: "https://gitlab.example.com", TokenFile: "/tokens/gitlab-token.txt"},
		Archive: ArchiveConfig{
			Enabled:   true,
			Cache:     "bolt",
			CachePath: "/var/cache/hashesdb/archive.bolt",
			CacheTTL:  Duration(24 * time.Hour),
		},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.log", ".git"},
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Encrypt: true,
			Vault:   VaultConfig{Type: "filesystem", Name: "local", FSVaultRoot: "/mnt/snapshots"},
			Encryption: EncryptionConfig{
				PublicKeyPath:  "/home/user/.local/share/hashesdb/keys/hashesdb.pub",
				PrivateKeyPath: "/home/user/.local/share/hashesdb/keys/hashesdb.key",
			},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Scan.Workers != 4 || !got.Scan.Recursive {
		t.Errorf("Scan = %+v, want 4 workers, recursive", got.Scan)
	}
	if got.Scan.Timeout.Std() != 10*time.Minute {
		t.Errorf("Scan.Timeout = %v, want 10m", got.Scan.Timeout.Std())
	}
	if got.GitLab.BaseURL != "https://gitlab.example.com" {
		t.Errorf("GitLab.BaseURL = %q", got.GitLab.BaseURL)
	}
	if got.Archive.CacheTTL.Std() != 24*time.Hour {
		t.Errorf("Archive.CacheTTL = %v, want 24h", got.Archive.CacheTTL.Std())
	}
	if got.Archive.Cache != "bolt" {
		t.Errorf("Archive.Cache = %q, want bolt", got.Archive.Cache)
	}
	if got.Snapshot.Vault.FSVaultRoot != "/mnt/snapshots" {
		t.Errorf("Snapshot.Vault.FSVaultRoot = %q, want %q", got.Snapshot.Vault.FSVaultRoot, "/mnt/snapshots")
	}
	if got.Snapshot.Encryption != original.Snapshot.Encryption {
		t.Errorf("Snapshot.Encryption = %+v, want %+v", got.Snapshot.Encryption, original.Snapshot.Encryption)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestDuration(t *testing.T) {
	t.Run("decodes duration strings", func(t *testing.T) {
		m := &Manager{}
		cfg, err := m.Read(strings.NewReader("[archive]\ntimeout = \"90s\"\n"))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if cfg.Archive.Timeout.Std() != 90*time.Second {
			t.Errorf("Timeout = %v, want 90s", cfg.Archive.Timeout.Std())
		}
	})

	t.Run("rejects invalid durations", func(t *testing.T) {
		m := &Manager{}
		if _, err := m.Read(strings.NewReader("[archive]\ntimeout = \"soon\"\n")); err == nil {
			t.Error("Read() expected error for invalid duration")
		}
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/hashesdb")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.LogDir != "/data/hashesdb/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/hashesdb/log")
	}
	if cfg.Database.Path != "/data/hashesdb/hashes.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/data/hashesdb/hashes.db")
	}
	if cfg.Scan.Workers != 1 {
		t.Errorf("Scan.Workers = %d, want 1", cfg.Scan.Workers)
	}
	if cfg.GitHub.TokenFile != "/data/hashesdb/github-token.txt" {
		t.Errorf("GitHub.TokenFile = %q", cfg.GitHub.TokenFile)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Timeout.Std() != 60*time.Second {
		t.Errorf("Archive = %+v, want enabled with 60s timeout", cfg.Archive)
	}
	if cfg.Snapshot.Enabled {
		t.Error("Snapshot should be disabled by default")
	}
	if cfg.Snapshot.Encryption.PublicKeyPath != "/data/hashesdb/keys/hashesdb.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q", cfg.Snapshot.Encryption.PublicKeyPath)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashesdb.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashesdb.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashesdb.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
		if got.Archive.Timeout.Std() != 60*time.Second {
			t.Errorf("Archive.Timeout = %v, want 60s", got.Archive.Timeout.Std())
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/hashesdb.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
