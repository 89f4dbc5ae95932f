//go:build !unix

package local

import "os"

func inode(info os.FileInfo) (ino uint64, dev uint64, ok bool) {
	return 0, 0, false
}
