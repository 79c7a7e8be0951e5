//go:build unix

package marshal

import (
	"os"

	"golang.org/x/sys/unix"
)

// NewPageAllocator returns an Allocator drawing Owned blocks from anonymous
// page mappings outside the Go heap. Block addresses are page aligned and
// invisible to the collector, so an Owned pointer the native side retains
// past its scope stays valid until the block is freed. Freeing unmaps.
func NewPageAllocator() Allocator {
	return pageAllocator{}
}

type pageAllocator struct{}

func (pageAllocator) Alloc(n int) []byte {
	size := os.Getpagesize()
	if n > size {
		size = (n + size - 1) / size * size
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic("marshal: anonymous mapping failed: " + err.Error())
	}
	return buf
}

func (pageAllocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	// b is the full mapping handed out by Alloc.
	_ = unix.Munmap(b)
}
