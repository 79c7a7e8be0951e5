package marshal

import "unsafe"

// Scope owns the conversions of one call window. Owned allocations made
// through it are freed by Release; Borrowed conversions pin their Go
// backing memory until Release so derived pointers stay valid for the
// call.
//
// A scope serves a single goroutine. Conversions run inline with the call
// and never block, so no locking is layered on top of the native library's
// own thread-safety story.
type Scope struct {
	alloc  Allocator
	owned  []*ownedBlock
	pinned [][]byte
}

type ownedBlock struct {
	buf      []byte
	released bool
}

// NewScope returns a scope backed by the Go heap.
func NewScope() *Scope {
	return NewScopeWith(nil)
}

// NewScopeWith returns a scope drawing Owned copies from a. A nil
// allocator falls back to the Go heap.
func NewScopeWith(a Allocator) *Scope {
	if a == nil {
		a = heapAllocator{}
	}
	return &Scope{alloc: a}
}

// CString copies s into a NUL-terminated buffer independent of s and
// returns an Owned pointer to it. The copy is freed on Release.
func (s *Scope) CString(str string) Ptr {
	buf := s.alloc.Alloc(len(str) + 1)
	copy(buf, str)
	buf[len(str)] = 0
	return s.own(buf)
}

// CBytes copies b into an Owned buffer of exactly len(b) bytes. No
// terminator is added; the length travels through a separate parameter.
func (s *Scope) CBytes(b []byte) Ptr {
	if len(b) == 0 {
		return NewOwned(nil, nil)
	}
	buf := s.alloc.Alloc(len(b))
	copy(buf, b)
	return s.own(buf)
}

// Bytes returns a Borrowed pointer to b's first byte. This is the explicit
// conversion for passing a length-carrying sequence to a bare pointer
// parameter: the scope pins b so the pointer stays valid until Release,
// and the caller passes the length separately.
func (s *Scope) Bytes(b []byte) Ptr {
	if len(b) == 0 {
		return NewBorrowed(nil)
	}
	s.pinned = append(s.pinned, b)
	return NewBorrowed(unsafe.Pointer(&b[0]))
}

func (s *Scope) own(buf []byte) Ptr {
	blk := &ownedBlock{buf: buf}
	s.owned = append(s.owned, blk)
	return NewOwned(unsafe.Pointer(&buf[0]), func() { s.free(blk) })
}

func (s *Scope) free(blk *ownedBlock) {
	if blk.released {
		return
	}
	blk.released = true
	s.alloc.Free(blk.buf)
	blk.buf = nil
}

// OwnedCount reports the number of Owned allocations not yet released.
func (s *Scope) OwnedCount() int {
	n := 0
	for _, blk := range s.owned {
		if !blk.released {
			n++
		}
	}
	return n
}

// Release frees every live Owned allocation in reverse acquisition order
// and unpins Borrowed memory. Callers defer it so the release guarantee
// holds on every exit path. A released scope is empty and may be reused.
func (s *Scope) Release() {
	for i := len(s.owned) - 1; i >= 0; i-- {
		s.free(s.owned[i])
	}
	s.owned = s.owned[:0]
	for i := range s.pinned {
		s.pinned[i] = nil
	}
	s.pinned = s.pinned[:0]
}
