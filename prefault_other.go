//go:build !linux

package mphash

// prefaultRegion is a no-op off Linux.
func prefaultRegion(data []byte) {}
