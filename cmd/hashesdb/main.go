package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hashesdb/internal/app"
	"hashesdb/internal/config"
	"hashesdb/internal/hashing"
	"hashesdb/internal/hdb"
)

// exitCode is set by scan to its outcome code.
var exitCode int

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// loadConfig reads the config file and applies the persistent --db override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.Type = "sqlite"
		cfg.Database.Path = db
	}
	return cfg, nil
}

// newApp reads the config and creates an HDBApp. The caller must defer a.Close().
func newApp(cmd *cobra.Command, operation string) (*app.HDBApp, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.NewHDBApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("a terminal is required to read the passphrase")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

var rootCmd = &cobra.Command{
	Use:           "hashesdb",
	Short:         "Catalog file hashes from local disks and code hosting platforms",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Catalog:  %s (run `hashesdb create` to initialize it)\n", cfg.Database.Path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:   %s\n", cfg.HostID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Catalog:   %s (%s)\n", cfg.Database.Path, cfg.Database.Type)
		fmt.Printf("Workers:   %d\n", cfg.Scan.Workers)
		fmt.Printf("Archive:   enabled=%t cache=%s\n", cfg.Archive.Enabled, cfg.Archive.Cache)
		fmt.Printf("Snapshots: enabled=%t encrypt=%t vault=%s\n", cfg.Snapshot.Enabled, cfg.Snapshot.Encrypt, cfg.Snapshot.Vault.Type)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the snapshot vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the snapshot vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := app.ValidateVault(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Printf("Vault %q (%s) is ready\n", cfg.Snapshot.Vault.Name, cfg.Snapshot.Vault.Type)
		return nil
	},
}

// create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := app.CreateCatalog(cfg, overwrite); err != nil {
			return err
		}
		fmt.Printf("Catalog created at %s\n", cfg.Database.Path)
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Hash local paths and remote repositories into the catalog",
	Long: `Hash local paths and remote repositories into the catalog.

The exit code is the scan outcome: 0 success, 3 some hashes could not be
calculated, 4 some files could not be scanned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		opts := app.ScanOptions{Command: "hashesdb " + strings.Join(os.Args[1:], " ")}
		opts.Local, _ = flags.GetStringSlice("local")
		opts.Local = append(opts.Local, args...)
		opts.GitHub, _ = flags.GetStringSlice("github")
		opts.GitLab, _ = flags.GetStringSlice("gitlab")
		opts.HashFunctions, _ = flags.GetStringSlice("hash")
		opts.Recursive, _ = flags.GetBool("recursive")
		opts.DownloadDir, _ = flags.GetString("download-dir")

		if len(opts.Local)+len(opts.GitHub)+len(opts.GitLab) == 0 {
			return fmt.Errorf("nothing to scan: give local paths, --github or --gitlab repositories")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if flags.Changed("workers") {
			cfg.Scan.Workers, _ = flags.GetInt("workers")
		}

		a, err := app.NewHDBApp(cfg, "scan")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		result, err := a.Scan(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("Scan #%d: %s (%d file(s), %d failure(s))\n", result.ID, result.Outcome, result.Targets, result.Failures)
		exitCode = int(result.Outcome)
		return nil
	},
}

// compare command
var compareCmd = &cobra.Command{
	Use:   "compare FUZZY_FUNCTION HASH_ID HASH_ID...",
	Short: "Score fuzzy hash records pairwise",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		function := args[0]
		ids := make([]int64, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid hash id %q", raw)
			}
			ids = append(ids, id)
		}
		limitSet := cmd.Flags().Changed("limit")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "compare")
		if err != nil {
			return err
		}
		defer a.Close()

		sims, err := a.Compare(cmd.Context(), function, ids)
		if err != nil {
			return err
		}
		if len(sims) == 0 {
			fmt.Println("Nothing to compare.")
			return nil
		}

		for _, s := range sims {
			if limitSet && !hashing.WithinLimit(function, s.Score, limit) {
				continue
			}
			fmt.Printf("%d\t%d\t%d\n", s.A, s.B, s.Score)
		}
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find catalog records by hash value or file name",
	RunE: func(cmd *cobra.Command, args []string) error {
		hashes, _ := cmd.Flags().GetStringSlice("hash")
		names, _ := cmd.Flags().GetStringSlice("name")
		if len(hashes)+len(names) == 0 {
			return fmt.Errorf("give at least one --hash or --name")
		}

		a, err := newApp(cmd, "search")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Search(cmd.Context(), hashes, names)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No matching files.")
			return nil
		}
		for _, f := range files {
			current := ""
			if f.IsCurrent {
				current = "  [current]"
			}
			fmt.Printf("#%d  scan %d  %s  %s  %d%s\n", f.ID, f.ScanID, f.Origin, f.Path, f.Size, current)
		}
		return nil
	},
}

var searchDuplicatesCmd = &cobra.Command{
	Use:   "search-duplicates FILE...",
	Short: "List catalog files with the same content as local files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "search-duplicates")
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := a.SearchDuplicates(cmd.Context(), args)
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Printf("%s  %s\n", g.Path, g.Identifier)
			if len(g.Matches) == 0 {
				fmt.Println("  no duplicates")
			}
			for _, f := range g.Matches {
				fmt.Printf("  #%d  %s  %s\n", f.ID, f.Origin, f.Path)
			}
		}
		return nil
	},
}

// registry commands
var hashFunctionsCmd = &cobra.Command{
	Use:   "hash-functions",
	Short: "List the registered hash functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		details, _ := cmd.Flags().GetBool("details")

		a, err := newApp(cmd, "hash-functions")
		if err != nil {
			return err
		}
		defer a.Close()

		fns, err := a.HashFunctions(cmd.Context())
		if err != nil {
			return err
		}
		for _, fn := range fns {
			if !details {
				fmt.Println(fn.Name)
				continue
			}
			size := "-"
			if fn.Size.Valid {
				size = strconv.FormatInt(fn.Size.Int64, 10)
			}
			kind := "fixed"
			if fn.Fuzzy {
				kind = "fuzzy"
			}
			fmt.Printf("%-10s  %5s bits  %s\n", fn.Name, size, kind)
		}
		return nil
	},
}

var hashIsAvailableCmd = &cobra.Command{
	Use:   "hash-is-available NAME",
	Short: "Check whether a hash function is registered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "hash-is-available")
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.HashIsAvailable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(ok)
		if !ok {
			exitCode = 1
		}
		return nil
	},
}

// dbinfo command
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show catalog metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "dbinfo")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Info(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Name:          %s\n", info.Name)
		fmt.Printf("Created:       %s\n", formatTime(info.Created))
		fmt.Printf("Modified:      %s\n", formatTime(info.Modified))
		fmt.Printf("Version:       %d\n", info.Version)
		fmt.Printf("Last scan:     %d\n", info.LastScanID)
		fmt.Printf("Scans:         %d\n", info.ScanCount)
		fmt.Printf("Files:         %d (%d current)\n", info.FileCount, info.CurrentFileCount)
		fmt.Printf("Hashes:        %d\n", info.HashCount)
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log PATH",
	Short: "View the catalog history of a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "log")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.FileHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No catalog history.")
			return nil
		}

		for _, e := range entries {
			current := ""
			if e.File.IsCurrent {
				current = "  [current]"
			}
			archive := hdb.ArchiveStatusFromNullBool(e.File.SwhKnown)
			fmt.Printf("#%d  scan %d  %s  %d bytes  archive:%s%s\n",
				e.File.ID, e.File.ScanID, formatTime(e.File.RetrievedAt), e.File.Size, archive, current)
			for _, h := range e.Hashes {
				fmt.Printf("    %-10s #%d  %s\n", h.FunctionName, h.ID, h.Value)
			}
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		scans, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(scans) == 0 {
			fmt.Println("No scans recorded.")
			return nil
		}

		for _, s := range scans {
			fmt.Printf("#%d  %s  %-12s  %-28s  %s\n",
				s.ID,
				formatTime(s.StartedAt),
				s.Hostname,
				hdb.Outcome(s.ReturnCode),
				s.Command,
			)
		}
		return nil
	},
}

// snapshot commands
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage catalog snapshots",
}

var snapshotKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the snapshot encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if err := app.SetupSnapshotKeys(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", cfg.Snapshot.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Snapshot.Encryption.PrivateKeyPath)
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull DEST",
	Short: "Restore the latest catalog snapshot to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		hostID, _ := cmd.Flags().GetString("host")
		if hostID == "" {
			hostID = cfg.HostID
		}

		var passphrase string
		if cfg.Snapshot.Encrypt {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		version, err := app.PullSnapshot(cfg, hostID, args[0], passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Restored snapshot of %s at scan %d to %s\n", hostID, version, args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Catalog file (overrides the configured database)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	createCmd.Flags().Bool("overwrite", false, "Replace an existing catalog")

	scanCmd.Flags().StringSliceP("local", "l", nil, "Local files or directories")
	scanCmd.Flags().StringSlice("github", nil, "GitHub repositories (owner/name)")
	scanCmd.Flags().StringSlice("gitlab", nil, "GitLab projects (id or group/name)")
	scanCmd.Flags().StringSliceP("hash", "H", []string{"md5", "sha1", "sha256"}, "Hash functions to calculate")
	scanCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	scanCmd.Flags().String("download-dir", "", "Where remote repositories are mirrored")
	scanCmd.Flags().Int("workers", 1, "Files hashed concurrently")

	compareCmd.Flags().Int("limit", 0, "Only show pairs at least this similar (ssdeep) or at most this distant (tlsh)")

	searchCmd.Flags().StringSlice("hash", nil, "Hash values")
	searchCmd.Flags().StringSlice("name", nil, "File names")

	hashFunctionsCmd.Flags().Bool("details", false, "Show digest size and kind")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of scans to show")

	snapshotCmd.AddCommand(snapshotKeygenCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)
	snapshotPullCmd.Flags().String("host", "", "Host id of the snapshot (default: this host)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(searchDuplicatesCmd)
	rootCmd.AddCommand(hashFunctionsCmd)
	rootCmd.AddCommand(hashIsAvailableCmd)
	rootCmd.AddCommand(dbinfoCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(snapshotCmd)
}
