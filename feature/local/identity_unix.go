//go:build unix

package local

import (
	"os"
	"syscall"
)

// inode returns the inode and device of info when the file system has them.
func inode(info os.FileInfo) (ino uint64, dev uint64, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st.Ino == 0 {
		return 0, 0, false
	}
	return uint64(st.Ino), uint64(st.Dev), true
}
