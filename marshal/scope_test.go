package marshal

import (
	"fmt"
	"testing"
	"unsafe"
)

type countingAllocator struct {
	allocs int
	frees  int
}

func (a *countingAllocator) Alloc(n int) []byte {
	a.allocs++
	return make([]byte, n)
}

func (a *countingAllocator) Free([]byte) {
	a.frees++
}

func TestScopeCString(t *testing.T) {
	s := NewScope()
	defer s.Release()

	p := s.CString("hi")
	if p.Tag() != Owned {
		t.Errorf("tag = %v, want owned", p.Tag())
	}
	if p.IsNil() {
		t.Fatal("CString returned nil address")
	}
	buf := unsafe.Slice((*byte)(p.Addr()), 3)
	if buf[0] != 'h' || buf[1] != 'i' || buf[2] != 0 {
		t.Errorf("buffer = %v, want h i NUL", buf)
	}
}

func TestScopeCStringEmpty(t *testing.T) {
	s := NewScope()
	defer s.Release()

	p := s.CString("")
	if p.IsNil() {
		t.Fatal("empty string must still produce a terminator byte")
	}
	if b := *(*byte)(p.Addr()); b != 0 {
		t.Errorf("terminator = %d, want 0", b)
	}
}

func TestScopeCStringIndependentCopy(t *testing.T) {
	s := NewScope()
	defer s.Release()

	src := []byte("abc")
	p := s.CString(string(src))
	src[0] = 'X'

	if got := *(*byte)(p.Addr()); got != 'a' {
		t.Errorf("copy shares storage with source: first byte = %c", got)
	}
}

func TestScopeBytesBorrowed(t *testing.T) {
	s := NewScope()
	defer s.Release()

	b := []byte{1, 2, 3}
	p := s.Bytes(b)
	if p.Tag() != Borrowed {
		t.Errorf("tag = %v, want borrowed", p.Tag())
	}
	if p.Addr() != unsafe.Pointer(&b[0]) {
		t.Error("Bytes must point at the backing array, not a copy")
	}

	// Writes through the pointer land in the slice.
	*(*byte)(p.Addr()) = 9
	if b[0] != 9 {
		t.Errorf("b[0] = %d, want 9", b[0])
	}
}

func TestScopeBytesEmpty(t *testing.T) {
	s := NewScope()
	defer s.Release()

	if p := s.Bytes(nil); !p.IsNil() || p.Tag() != Borrowed {
		t.Errorf("Bytes(nil) = %v addr, tag %v", p.Addr(), p.Tag())
	}
}

func TestScopeCBytes(t *testing.T) {
	s := NewScope()
	defer s.Release()

	src := []byte{1, 2}
	p := s.CBytes(src)
	if p.Tag() != Owned {
		t.Errorf("tag = %v, want owned", p.Tag())
	}
	got := unsafe.Slice((*byte)(p.Addr()), 2)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("copy = %v, want [1 2]", got)
	}

	// Independent of the source.
	src[0] = 7
	if got[0] != 1 {
		t.Error("CBytes shares storage with source")
	}
}

func TestScopeReleaseFreesAll(t *testing.T) {
	alloc := &countingAllocator{}
	s := NewScopeWith(alloc)

	s.CString("a")
	s.CString("b")
	s.CBytes([]byte{1})
	if got := s.OwnedCount(); got != 3 {
		t.Fatalf("OwnedCount = %d, want 3", got)
	}

	s.Release()
	if alloc.frees != alloc.allocs {
		t.Errorf("frees = %d, allocs = %d; release must balance", alloc.frees, alloc.allocs)
	}
	if got := s.OwnedCount(); got != 0 {
		t.Errorf("OwnedCount after release = %d, want 0", got)
	}

	// Releasing again frees nothing twice.
	s.Release()
	if alloc.frees != alloc.allocs {
		t.Errorf("double release unbalanced: frees = %d, allocs = %d", alloc.frees, alloc.allocs)
	}
}

func TestScopeReleaseOnErrorPath(t *testing.T) {
	alloc := &countingAllocator{}

	err := func() error {
		s := NewScopeWith(alloc)
		defer s.Release()

		s.CString("first")
		s.CString("second")
		return fmt.Errorf("native call failed")
	}()

	if err == nil {
		t.Fatal("expected the simulated failure")
	}
	if alloc.allocs != 2 || alloc.frees != 2 {
		t.Errorf("allocs = %d, frees = %d; error path must still release", alloc.allocs, alloc.frees)
	}
}

func TestPtrReleaseOnce(t *testing.T) {
	alloc := &countingAllocator{}
	s := NewScopeWith(alloc)

	p := s.CString("x")
	p.Release()
	p.Release()
	if alloc.frees != 1 {
		t.Errorf("frees = %d after double Ptr.Release, want 1", alloc.frees)
	}

	s.Release()
	if alloc.frees != 1 {
		t.Errorf("frees = %d after scope release, want still 1", alloc.frees)
	}
}

func TestBorrowedReleaseIsNoOp(t *testing.T) {
	b := []byte{1}
	p := NewBorrowed(unsafe.Pointer(&b[0]))
	p.Release()
	if b[0] != 1 {
		t.Error("Borrowed release touched memory")
	}
}

func TestScopeReuseAfterRelease(t *testing.T) {
	alloc := &countingAllocator{}
	s := NewScopeWith(alloc)

	s.CString("a")
	s.Release()

	s.CString("b")
	if got := s.OwnedCount(); got != 1 {
		t.Errorf("OwnedCount after reuse = %d, want 1", got)
	}
	s.Release()
	if alloc.frees != 2 {
		t.Errorf("frees = %d, want 2", alloc.frees)
	}
}

func TestTagString(t *testing.T) {
	cases := []struct {
		tag  Tag
		want string
	}{
		{Owned, "owned"},
		{Borrowed, "borrowed"},
		{Tag(9), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.tag.String(); got != tc.want {
			t.Errorf("Tag(%d).String() = %q, want %q", tc.tag, got, tc.want)
		}
	}
}
