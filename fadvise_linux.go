//go:build linux

package mphash

import "golang.org/x/sys/unix"

// fadviseSequential hints that an image is about to be read front to back.
// Best-effort: errors are ignored.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
