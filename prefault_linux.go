//go:build linux

package mphash

import "golang.org/x/sys/unix"

// MADV_POPULATE_WRITE was added in Linux 5.14.
const madvPopulateWrite = 23

// prefaultRegion asks the kernel to fault in a freshly mapped output
// region before it is filled. Older kernels return EINVAL, which is
// ignored along with every other error.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
