//go:build linux

package journal

import (
	"os"
	"syscall"
	"time"
)

// createdTime reports the inode change time; Linux stat exposes no portable
// birth time.
func createdTime(info os.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
}
