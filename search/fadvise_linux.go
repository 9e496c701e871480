//go:build linux

package search

import (
	"os"

	"golang.org/x/sys/unix"
)

// dropCache tells the kernel the scanned file's pages won't be needed again
func dropCache(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
