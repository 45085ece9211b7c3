package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for hashesdb.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Scan       ScanConfig       `toml:"scan"`
	GitHub     RemoteConfig     `toml:"github"`
	GitLab     RemoteConfig     `toml:"gitlab"`
	Archive    ArchiveConfig    `toml:"archive"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Snapshot   SnapshotConfig   `toml:"snapshot"`
}

// DatabaseConfig represents configuration for the catalog.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// ScanConfig holds defaults for the scan command.
type ScanConfig struct {
	Workers     int      `toml:"workers"`
	Recursive   bool     `toml:"recursive"`
	DownloadDir string   `toml:"download_dir"`
	Timeout     Duration `toml:"timeout"` // zero means no limit
}

// RemoteConfig points at a repository hosting platform.
type RemoteConfig struct {
	BaseURL   string `toml:"base_url,omitempty"` // empty selects the public instance
	TokenFile string `toml:"token_file"`
}

// ArchiveConfig controls content archive lookups.
type ArchiveConfig struct {
	Enabled   bool     `toml:"enabled"`
	BaseURL   string   `toml:"base_url,omitempty"`
	Timeout   Duration `toml:"timeout"`
	Cache     string   `toml:"cache"`                // "none", "memory" or "bolt"
	CachePath string   `toml:"cache_path,omitempty"` // only used for cache=bolt
	CacheTTL  Duration `toml:"cache_ttl,omitempty"`  // only used for cache=bolt
	CacheSize int      `toml:"cache_size,omitempty"` // only used for cache=memory
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// MetricsConfig holds scan metrics output settings.
type MetricsConfig struct {
	Textfile string `toml:"textfile,omitempty"` // empty disables metrics output
}

// SnapshotConfig controls catalog snapshots taken after mutating commands.
type SnapshotConfig struct {
	Enabled    bool             `toml:"enabled"`
	Encrypt    bool             `toml:"encrypt"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Optional S3-compatible endpoint and static credentials. When the keys
	// are empty the default AWS credential chain is used.
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for snapshot encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "hashes.db"),
		},
		Scan: ScanConfig{
			Workers:     1,
			DownloadDir: filepath.Join(baseDir, "downloads"),
		},
		GitHub: RemoteConfig{TokenFile: filepath.Join(baseDir, "github-token.txt")},
		GitLab: RemoteConfig{TokenFile: filepath.Join(baseDir, "gitlab-token.txt")},
		Archive: ArchiveConfig{
			Enabled: true,
			Timeout: Duration(defaultArchiveTimeout),
			Cache:   "memory",
		},
		Snapshot: SnapshotConfig{
			Encryption: EncryptionConfig{
				PublicKeyPath:  filepath.Join(baseDir, "keys", "hashesdb.pub"),
				PrivateKeyPath: filepath.Join(baseDir, "keys", "hashesdb.key"),
			},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
