package hdb

// HDBService is the orchestration layer that coordinates target resolution,
// hashing, archive lookups and catalog writes for the CLI.
type HDBService struct {
	catalog  Catalog
	fsmgr    FilesystemManager
	archive  ArchiveResolver
	remotes  map[string]RemoteSource
	recorder Recorder
	logger   Logger
	clock    Clock
	hostname string
	workers  int
}

// ServiceOptions carries the optional collaborators of an HDBService.
// Zero values fall back to no-op implementations.
type ServiceOptions struct {
	// Hostname is the origin recorded for local files.
	Hostname string

	// Workers bounds how many files are hashed concurrently. Defaults to 1.
	Workers int

	Archive  ArchiveResolver
	Remotes  map[string]RemoteSource
	Recorder Recorder
}

// NewHDBService creates a new HDBService with the provided dependencies.
func NewHDBService(catalog Catalog, fsmgr FilesystemManager, logger Logger, clock Clock, opts ServiceOptions) *HDBService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if opts.Archive == nil {
		opts.Archive = NopArchiveResolver{}
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Hostname == "" {
		opts.Hostname = "localhost"
	}

	return &HDBService{
		catalog:  catalog,
		fsmgr:    fsmgr,
		archive:  opts.Archive,
		remotes:  opts.Remotes,
		recorder: opts.Recorder,
		logger:   logger,
		clock:    clock,
		hostname: opts.Hostname,
		workers:  opts.Workers,
	}
}

// Hostname returns the origin recorded for local files.
func (s *HDBService) Hostname() string {
	return s.hostname
}
