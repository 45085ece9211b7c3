//go:build !linux

package fs

import (
	"io/fs"
	"time"
)

// ChangeTime falls back to the modification time where no change time is exposed.
func (m *OSFilesystemManager) ChangeTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
