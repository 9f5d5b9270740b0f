//go:build linux

package loader

import (
	"os"

	"golang.org/x/sys/unix"
)

// advise tells the kernel the file will be read sequentially, exactly once.
func advise(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}
