package hdb

import (
	"database/sql"
	"errors"
	"time"

	"hashesdb/internal/database/sqlc"
)

// Platform names for remote target classes.
const (
	PlatformGitHub = "github"
	PlatformGitLab = "gitlab"
)

var (
	// ErrUnknownHashFunction is returned when a name is absent from the registry.
	ErrUnknownHashFunction = errors.New("hash function not in registry")

	// ErrNotFuzzy is returned when a comparison is requested for a fixed-length hash function.
	ErrNotFuzzy = errors.New("hash function is not a fuzzy hash")

	// ErrCatalogMetadata is returned when the catalog cannot allocate or record a scan.
	ErrCatalogMetadata = errors.New("catalog metadata unavailable")
)

// Outcome is the result code persisted on a scan run.
type Outcome int64

const (
	OutcomeSuccess        Outcome = 0
	OutcomeRunning        Outcome = 1
	OutcomeHashIncomplete Outcome = 3
	OutcomeFileIncomplete Outcome = 4
)

// Worse returns the more severe of o and other.
// Running is provisional and never outranks a final outcome.
func (o Outcome) Worse(other Outcome) Outcome {
	if o == OutcomeRunning {
		return other
	}
	if other == OutcomeRunning {
		return o
	}
	return max(o, other)
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRunning:
		return "running"
	case OutcomeHashIncomplete:
		return "hash calculation incomplete"
	case OutcomeFileIncomplete:
		return "file scan incomplete"
	default:
		return "unknown"
	}
}

// ArchiveStatus is the tri-state result of a content archive lookup.
type ArchiveStatus int

const (
	// ArchiveUnresolved means the lookup failed or was not attempted.
	ArchiveUnresolved ArchiveStatus = iota
	ArchiveKnown
	ArchiveNotKnown
)

// NullBool maps the status onto the catalog column.
func (a ArchiveStatus) NullBool() sql.NullBool {
	switch a {
	case ArchiveKnown:
		return sql.NullBool{Bool: true, Valid: true}
	case ArchiveNotKnown:
		return sql.NullBool{Bool: false, Valid: true}
	default:
		return sql.NullBool{}
	}
}

func (a ArchiveStatus) String() string {
	switch a {
	case ArchiveKnown:
		return "known"
	case ArchiveNotKnown:
		return "unknown"
	default:
		return "unresolved"
	}
}

// ArchiveStatusFromNullBool is the inverse of ArchiveStatus.NullBool.
func ArchiveStatusFromNullBool(b sql.NullBool) ArchiveStatus {
	switch {
	case !b.Valid:
		return ArchiveUnresolved
	case b.Bool:
		return ArchiveKnown
	default:
		return ArchiveNotKnown
	}
}

// ScanTarget is a local file ready to be hashed.
type ScanTarget struct {
	Path        string // absolute local path
	Origin      string // hostname for local files, raw-content URL for remote ones
	RetrievedAt time.Time
}

// Resolution is the result of turning raw target descriptors into ScanTargets.
// Failures counts descriptors or files that could not be resolved.
type Resolution struct {
	Targets  []ScanTarget
	Failures int
}

// Similarity is one pairwise fuzzy comparison.
type Similarity struct {
	A     int64
	B     int64
	Score int
}

// DuplicateGroup lists the current catalog files sharing the content of Path.
type DuplicateGroup struct {
	Path       string
	Identifier string
	Matches    []*sqlc.File
}

// CatalogInfo summarises the catalog for display.
type CatalogInfo struct {
	Name             string
	Created          time.Time
	Modified         time.Time
	Version          int64
	LastScanID       int64
	ScanCount        int64
	FileCount        int64
	CurrentFileCount int64
	HashCount        int64
}
