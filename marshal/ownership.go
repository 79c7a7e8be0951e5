package marshal

import "unsafe"

// Tag classifies the lifetime of a cross-boundary pointer.
type Tag uint8

const (
	// Owned pointers carry a release obligation. The allocator that
	// produced the pointer frees it, normally through the owning scope.
	Owned Tag = iota

	// Borrowed pointers alias Go-managed memory. They are valid only for
	// the duration of the call they were produced for and must not be
	// retained past its return.
	Borrowed
)

var tagNames = [...]string{
	Owned:    "owned",
	Borrowed: "borrowed",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Ptr is a pointer-shaped value crossing the native boundary together with
// its lifetime tag.
type Ptr struct {
	addr    unsafe.Pointer
	tag     Tag
	release func()
}

// NewBorrowed tags addr as call-scoped. The caller keeps the referenced
// memory alive for the call, usually by pinning it in a Scope.
func NewBorrowed(addr unsafe.Pointer) Ptr {
	return Ptr{addr: addr, tag: Borrowed}
}

// NewOwned tags addr as carrying a release obligation discharged by
// release. Scope-produced Owned pointers release at most once regardless
// of how the obligation is triggered.
func NewOwned(addr unsafe.Pointer, release func()) Ptr {
	return Ptr{addr: addr, tag: Owned, release: release}
}

// Addr returns the raw address.
func (p Ptr) Addr() unsafe.Pointer { return p.addr }

// Tag returns the lifetime class.
func (p Ptr) Tag() Tag { return p.tag }

// IsNil reports whether the pointer is null.
func (p Ptr) IsNil() bool { return p.addr == nil }

// Release discharges an Owned pointer's obligation. Borrowed pointers have
// none and ignore the call.
func (p Ptr) Release() {
	if p.tag == Owned && p.release != nil {
		p.release()
	}
}
