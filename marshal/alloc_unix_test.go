//go:build unix

package marshal

import (
	"os"
	"testing"
	"unsafe"
)

func TestPageAllocatorBlocks(t *testing.T) {
	a := NewPageAllocator()
	page := os.Getpagesize()

	small := a.Alloc(16)
	if len(small) < 16 {
		t.Fatalf("Alloc(16) returned %d bytes", len(small))
	}
	if addr := uintptr(unsafe.Pointer(&small[0])); addr%uintptr(page) != 0 {
		t.Errorf("block at %#x is not page aligned", addr)
	}

	big := a.Alloc(page + 1)
	if len(big) < page+1 {
		t.Fatalf("Alloc(%d) returned %d bytes", page+1, len(big))
	}

	a.Free(small)
	a.Free(big)
}

func TestPageAllocatorScope(t *testing.T) {
	s := NewScopeWith(NewPageAllocator())
	defer s.Release()

	p := s.CString("mapped")
	if p.Tag() != Owned {
		t.Fatalf("tag = %v, want owned", p.Tag())
	}
	buf := unsafe.Slice((*byte)(p.Addr()), 7)
	if string(buf[:6]) != "mapped" || buf[6] != 0 {
		t.Errorf("buffer = %q %v, want the terminated copy", buf[:6], buf[6])
	}
	if n := s.OwnedCount(); n != 1 {
		t.Errorf("owned = %d, want 1", n)
	}

	s.Release()
	if n := s.OwnedCount(); n != 0 {
		t.Errorf("owned after release = %d, want 0", n)
	}
}
