//go:build linux

package mphash

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes for file and sets its length, so a
// full disk fails here instead of faulting during an mmap write.
func fallocateFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	if err := unix.Fallocate(fd, 0, 0, size); err != nil {
		// Not every filesystem supports fallocate (tmpfs on old kernels, NFS).
		return unix.Ftruncate(fd, size)
	}
	return unix.Ftruncate(fd, size)
}
