package marshal

// Allocator supplies backing storage for Owned copies. Alloc returns a
// block of at least n bytes; Free is called exactly once per block, with
// the slice Alloc handed out, when the owning scope releases.
type Allocator interface {
	Alloc(n int) []byte
	Free(b []byte)
}

// heapAllocator draws from the Go heap. Blocks stay alive through the
// scope reference; Free only severs that reference.
type heapAllocator struct{}

func (heapAllocator) Alloc(n int) []byte { return make([]byte, n) }

func (heapAllocator) Free([]byte) {}
