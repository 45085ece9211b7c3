package hdb

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a device, pipe or socket).
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// Stat returns fresh file info for a path.
	Stat(path *Path) (fs.FileInfo, error)

	// FindFiles discovers regular files under a directory. Without recursive
	// only the immediate children are returned. Symbolic links are not followed.
	FindFiles(path *Path, recursive bool) ([]*Path, error)

	// ChangeTime returns the inode change time recorded in info, or its
	// modification time where the platform does not expose one.
	ChangeTime(info fs.FileInfo) time.Time
}
