package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hashesdb/internal/archive"
	"hashesdb/internal/config"
	"hashesdb/internal/database"
	"hashesdb/internal/database/sqlc"
	"hashesdb/internal/encryption"
	"hashesdb/internal/fs"
	"hashesdb/internal/hdb"
	"hashesdb/internal/metrics"
	"hashesdb/internal/remote"
	"hashesdb/internal/vault"
)

// HDBApp is the application layer between the CLI and HDBService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string arguments, and on Close snapshots the catalog when
// the operation changed it.
type HDBApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	fsmgr    hdb.FilesystemManager
	resolver *archive.Resolver
	metrics  *metrics.ScanMetrics
	service  *hdb.HDBService
	clock    hdb.Clock
	op       *Operation
	logger   *slogAdapter
	logFile  *os.File
}

// deps are the collaborators that tests replace.
type deps struct {
	clock  hdb.Clock
	prompt remote.Prompter
	stderr io.Writer
}

// NewHDBApp creates a fully wired HDBApp from the given config.
// operation names the CLI command being run (e.g. "scan", "search").
// The caller must call Close when done.
func NewHDBApp(cfg *config.Config, operation string) (*HDBApp, error) {
	return newHDBApp(cfg, operation, deps{clock: hdb.RealClock{}, prompt: remote.TerminalPrompt, stderr: os.Stderr})
}

func newHDBApp(cfg *config.Config, operation string, d deps) (*HDBApp, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog schema out of date: %w", err)
	}

	if cfg.Snapshot.Enabled {
		if err := checkSnapshotVersion(cfg, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	op := NewOperation(operation, d.clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, d.stderr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	resolver, err := archive.NewResolverFromConfig(cfg.Archive, d.clock, adapter)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive resolver: %w", err)
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)
	scanMetrics := metrics.NewScanMetrics()

	opts := hdb.ServiceOptions{
		Hostname: hostname(),
		Workers:  cfg.Scan.Workers,
		Remotes:  remote.NewSourcesFromConfig(cfg, d.prompt, adapter, d.clock),
		Recorder: scanMetrics,
	}
	if resolver != nil {
		opts.Archive = resolver
	}
	svc := hdb.NewHDBService(db, fsmgr, adapter, d.clock, opts)

	return &HDBApp{
		cfg:      cfg,
		db:       db,
		fsmgr:    fsmgr,
		resolver: resolver,
		metrics:  scanMetrics,
		service:  svc,
		clock:    d.clock,
		op:       op,
		logger:   adapter,
		logFile:  logFile,
	}, nil
}

// checkSnapshotVersion refuses to work on a catalog that is older than the
// snapshot in the vault, since the next upload would replace newer data.
func checkSnapshotVersion(cfg *config.Config, db *database.SQLiteDatabase) error {
	v, err := vault.NewVaultFromConfig(context.Background(), cfg.Snapshot.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	remoteVersion, err := v.GetMetadataVersion(cfg.HostID, hdb.SnapshotName)
	if err != nil {
		return fmt.Errorf("checking snapshot version: %w", err)
	}
	localVersion, err := db.LastScanID()
	if err != nil {
		return err
	}
	if remoteVersion > localVersion {
		return fmt.Errorf("local catalog is behind its snapshot (local=%d, snapshot=%d): run `hashesdb snapshot pull` or disable snapshots", localVersion, remoteVersion)
	}
	return nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}

// CreateCatalog creates an initialized catalog at the configured path.
func CreateCatalog(cfg *config.Config, overwrite bool) error {
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "" {
		return fmt.Errorf("create is only supported for sqlite catalogs, got %q", cfg.Database.Type)
	}
	db, err := database.Create(cfg.Database.Path, overwrite)
	if err != nil {
		return err
	}
	return db.Close()
}

// ScanOptions are the raw scan arguments of the CLI.
type ScanOptions struct {
	Local         []string
	GitHub        []string
	GitLab        []string
	HashFunctions []string
	Recursive     bool
	DownloadDir   string
	Command       string
}

// Scan runs one scan and records its metrics. The returned result carries the
// outcome code even when err is non-nil after the run was recorded.
func (a *HDBApp) Scan(ctx context.Context, opts ScanOptions) (*hdb.ScanResult, error) {
	if timeout := a.cfg.Scan.Timeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		downloadDir = a.cfg.Scan.DownloadDir
	}

	req := hdb.ScanRequest{
		Local:         opts.Local,
		Remote:        map[string][]string{},
		HashFunctions: opts.HashFunctions,
		DownloadDir:   downloadDir,
		Recursive:     opts.Recursive || a.cfg.Scan.Recursive,
		Command:       opts.Command,
	}
	if len(opts.GitHub) > 0 {
		req.Remote[hdb.PlatformGitHub] = opts.GitHub
	}
	if len(opts.GitLab) > 0 {
		req.Remote[hdb.PlatformGitLab] = opts.GitLab
	}

	started := a.clock.Now()
	result, err := a.service.Scan(ctx, req)
	if result != nil {
		a.op.MarkMutated()
		a.metrics.ScanFinished(result.Outcome, started, a.clock.Now())
		a.writeMetrics()
	}
	if err != nil {
		a.op.Fail()
	}
	return result, err
}

func (a *HDBApp) writeMetrics() {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("cannot write metrics textfile", "path", path, "error", err)
	}
}

// Compare scores fuzzy hash records pairwise.
func (a *HDBApp) Compare(ctx context.Context, function string, ids []int64) ([]hdb.Similarity, error) {
	return a.service.Compare(ctx, function, ids)
}

// Search lists records whose hash value or file name matches any criterion.
func (a *HDBApp) Search(ctx context.Context, hashValues, names []string) ([]*sqlc.File, error) {
	return a.service.Search(ctx, hashValues, names)
}

// SearchDuplicates finds current records with the same content as each local file.
func (a *HDBApp) SearchDuplicates(ctx context.Context, rawPaths []string) ([]*hdb.DuplicateGroup, error) {
	return a.service.SearchDuplicates(ctx, rawPaths)
}

func (a *HDBApp) HashFunctions(ctx context.Context) ([]*sqlc.HashFunction, error) {
	return a.service.HashFunctions(ctx)
}

func (a *HDBApp) HashIsAvailable(ctx context.Context, name string) (bool, error) {
	return a.service.HashIsAvailable(ctx, name)
}

func (a *HDBApp) Info(ctx context.Context) (*hdb.CatalogInfo, error) {
	return a.service.GetInfo(ctx)
}

// History returns the most recent scan runs.
func (a *HDBApp) History(ctx context.Context, limit int) ([]*sqlc.Scan, error) {
	return a.service.GetHistory(ctx, limit)
}

// FileHistory returns every record of a local path. The path may no longer
// exist on disk, so it is only made absolute.
func (a *HDBApp) FileHistory(ctx context.Context, rawPath string) ([]*hdb.FileHistoryEntry, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.GetFileHistory(ctx, absPath, a.service.Hostname())
}

// Close releases resources and, for operations that changed the catalog,
// uploads a snapshot when snapshots are enabled.
func (a *HDBApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.op.Mutated() && a.cfg.Snapshot.Enabled {
		keep(a.uploadSnapshot())
	}

	if a.resolver != nil {
		keep(a.resolver.Close())
	}
	if err := a.db.Close(); err != nil {
		keep(fmt.Errorf("closing catalog: %w", err))
	}

	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status,
		"duration", a.clock.Now().Sub(a.op.StartedAt).String())
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// uploadSnapshot copies the catalog with VACUUM INTO, optionally encrypts the
// copy, and stores it in the vault with version = last scan id.
func (a *HDBApp) uploadSnapshot() error {
	version, err := a.db.LastScanID()
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "hashesdb-snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "catalog.db")
	if err := a.db.BackupTo(path); err != nil {
		return err
	}

	if a.cfg.Snapshot.Encrypt {
		enc, err := encryption.NewEncryptorFromConfig(a.cfg.Snapshot.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		if !enc.IsConfigured() {
			return fmt.Errorf("snapshot encryption enabled but no keys found (run `hashesdb snapshot keygen`)")
		}
		encPath := path + ".age"
		if err := encryptFile(enc, path, encPath); err != nil {
			return err
		}
		path = encPath
	}

	v, err := vault.NewVaultFromConfig(context.Background(), a.cfg.Snapshot.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := v.PutMetadata(a.cfg.HostID, hdb.SnapshotName, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	a.logger.Info("catalog snapshot uploaded", "host_id", a.cfg.HostID, "version", version, "bytes", info.Size())
	return nil
}

func encryptFile(enc hdb.Encryptor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}

// SetupSnapshotKeys generates the snapshot key pair protected by passphrase.
func SetupSnapshotKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Snapshot.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	return enc.Setup(passphrase)
}

// PullSnapshot restores the latest snapshot of hostID to dest, which must not
// exist yet. passphrase is only used for encrypted snapshots. It returns the
// snapshot version.
func PullSnapshot(cfg *config.Config, hostID, dest, passphrase string) (int64, error) {
	if _, err := os.Stat(dest); err == nil {
		return 0, fmt.Errorf("refusing to overwrite existing file %s", dest)
	}

	v, err := vault.NewVaultFromConfig(context.Background(), cfg.Snapshot.Vault)
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}
	version, err := v.GetMetadataVersion(hostID, hdb.SnapshotName)
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, fmt.Errorf("no snapshot stored for host %s", hostID)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".hashesdb-pull-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := pullInto(cfg, v, hostID, passphrase, tmp); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("moving snapshot into place: %w", err)
	}
	return version, nil
}

func pullInto(cfg *config.Config, v hdb.Vault, hostID, passphrase string, w io.Writer) error {
	if !cfg.Snapshot.Encrypt {
		return v.GetMetadata(hostID, hdb.SnapshotName, w)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Snapshot.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	dc, err := enc.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking snapshot key: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(v.GetMetadata(hostID, hdb.SnapshotName, pw))
	}()
	err = dc.Decrypt(pr, w)
	pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	return nil
}

// ValidateVault checks that the configured snapshot vault is usable.
func ValidateVault(ctx context.Context, cfg *config.Config) error {
	v, err := vault.NewVaultFromConfig(ctx, cfg.Snapshot.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	return v.ValidateSetup()
}
