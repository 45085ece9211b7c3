//go:build linux

package fs

import (
	"io/fs"
	"syscall"
	"time"
)

// ChangeTime returns the inode change time of info.
func (m *OSFilesystemManager) ChangeTime(info fs.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec))
}
