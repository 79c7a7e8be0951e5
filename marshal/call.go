//go:build linux || darwin || freebsd

package marshal

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/jupiterrider/ffi"
	"golang.org/x/sys/unix"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/typemap"
)

// Library is a loaded native library whose prototypes can be called through
// the dynamic path: arguments bind per their classification the same way
// BindArgs prepares them for generated code, the call runs through libffi.
type Library struct {
	path string
	lib  ffi.Lib
	m    *typemap.Mapped

	mu    sync.Mutex
	types map[string]*ffi.Type
}

// OpenLibrary loads the shared object at path and binds calls against the
// declarations in m. The mapped platform's pointer width must match the
// running process; a wasm32 mapping cannot drive native calls. The mapping
// stays live for the process, there is no unload.
func OpenLibrary(path string, m *typemap.Mapped) (*Library, error) {
	if m == nil {
		return nil, errors.InvalidData(errors.PhaseMarshal, nil, "nil mapped module")
	}
	ps, _ := m.Platform.Pointer()
	if uintptr(ps) != unsafe.Sizeof(uintptr(0)) {
		return nil, errors.InvalidData(errors.PhaseMarshal, nil,
			fmt.Sprintf("platform %s pointer width %d does not match this process", m.Platform.Name, ps))
	}
	lib, err := ffi.Load(path)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("loading %s", path), err)
	}
	return &Library{path: path, lib: lib, m: m, types: make(map[string]*ffi.Type)}, nil
}

// Path returns the path the library was opened with.
func (l *Library) Path() string { return l.path }

// Func prepares the call interface for the named prototype. The name is the
// C symbol name as it appears in the manifest. Variadic prototypes have no
// dynamic call path.
func (l *Library) Func(name string) (*Func, error) {
	fi, ok := l.m.FuncByName(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseMarshal, "function", name)
	}
	if fi.Variadic {
		return nil, errors.InvalidData(errors.PhaseMarshal, []string{name},
			"variadic prototypes have no dynamic call path")
	}
	ret, args, err := l.callDescriptors(fi)
	if err != nil {
		return nil, err
	}
	fun, err := l.lib.Prep(name, ret, args...)
	if err != nil {
		return nil, errors.NewUnresolvedSymbolsError([]string{name}, []string{l.path})
	}
	return &Func{lib: l, decl: fi, fun: fun, retBool: l.isBool(fi.Ret.C)}, nil
}

func (l *Library) isBool(t cdecl.Type) bool {
	r, ok := l.m.Graph.Resolve(t)
	if !ok {
		return false
	}
	return r.Kind == cdecl.TypePrim && r.Prim == cdecl.Bool
}

func (l *Library) callDescriptors(fi *typemap.FuncInfo) (*ffi.Type, []*ffi.Type, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ret, err := l.descriptorOf(fi.Ret)
	if err != nil {
		return nil, nil, err
	}
	args := make([]*ffi.Type, len(fi.Params))
	for i, p := range fi.Params {
		if args[i], err = l.descriptorOf(p.Info); err != nil {
			return nil, nil, err
		}
	}
	return ret, args, nil
}

// descriptorOf resolves a mapped type to its libffi descriptor. The caller
// holds l.mu; struct descriptors are built once and kept reachable for the
// life of the library, since prepared call interfaces point into them.
func (l *Library) descriptorOf(info typemap.TypeInfo) (*ffi.Type, error) {
	if strings.HasPrefix(info.FFI, "&FFIType") {
		return l.structDescriptor(strings.TrimPrefix(info.FFI, "&FFIType"))
	}
	if t, ok := scalarDescriptors[info.FFI]; ok {
		return t, nil
	}
	return nil, errors.UnmappableType(info.C.String(), "no call descriptor for this type")
}

func (l *Library) structDescriptor(goName string) (*ffi.Type, error) {
	if t, ok := l.types[goName]; ok {
		return t, nil
	}
	var si *typemap.StructInfo
	for _, s := range l.m.Structs {
		if s.GoName == goName {
			si = s
			break
		}
	}
	if si == nil {
		return nil, errors.NotFound(errors.PhaseMarshal, "struct", goName)
	}
	if si.Opaque {
		return nil, errors.UnmappableType(goName, "incomplete type cannot cross by value")
	}

	var elems []*ffi.Type
	if si.Union {
		// Member shapes are erased: one element pins the alignment and
		// byte filler reproduces the size.
		elems = append(elems, uintDescriptor(si.Layout.Align))
		for n := si.Layout.Align; n < si.Layout.Size; n++ {
			elems = append(elems, &ffi.TypeUint8)
		}
	} else {
		for _, f := range si.GoFields {
			var et *ffi.Type
			if strings.HasPrefix(f.FFI, "&FFIType") {
				nested, err := l.structDescriptor(strings.TrimPrefix(f.FFI, "&FFIType"))
				if err != nil {
					return nil, err
				}
				et = nested
			} else if t, ok := scalarDescriptors[f.FFI]; ok {
				et = t
			} else {
				continue
			}
			for n := uint32(0); n < f.FFICount; n++ {
				elems = append(elems, et)
			}
		}
	}

	t := ffi.NewType(elems...)
	l.types[goName] = &t
	return &t, nil
}

var scalarDescriptors = map[string]*ffi.Type{
	"&ffi.TypeVoid":    &ffi.TypeVoid,
	"&ffi.TypePointer": &ffi.TypePointer,
	"&ffi.TypeFloat":   &ffi.TypeFloat,
	"&ffi.TypeDouble":  &ffi.TypeDouble,
	"&ffi.TypeSint8":   &ffi.TypeSint8,
	"&ffi.TypeSint16":  &ffi.TypeSint16,
	"&ffi.TypeSint32":  &ffi.TypeSint32,
	"&ffi.TypeSint64":  &ffi.TypeSint64,
	"&ffi.TypeUint8":   &ffi.TypeUint8,
	"&ffi.TypeUint16":  &ffi.TypeUint16,
	"&ffi.TypeUint32":  &ffi.TypeUint32,
	"&ffi.TypeUint64":  &ffi.TypeUint64,
}

func uintDescriptor(size uint32) *ffi.Type {
	switch size {
	case 2:
		return &ffi.TypeUint16
	case 4:
		return &ffi.TypeUint32
	case 8:
		return &ffi.TypeUint64
	default:
		return &ffi.TypeUint8
	}
}

// Func is one prepared native function.
type Func struct {
	lib     *Library
	decl    *typemap.FuncInfo
	fun     ffi.Fun
	retBool bool
}

// Name returns the C symbol name.
func (fn *Func) Name() string { return fn.decl.Decl.Name }

// Call binds values through s and performs the native call. Conversion
// follows the same state machine as BindArgs: string auto-conversions
// allocate Owned copies in s, sequences need an explicit scope conversion,
// scalars range-check. A nil scope works for calls that convert nothing.
//
// The return value is surfaced per the prototype: nil for void, string for
// char pointers, uintptr for other pointers, the width-matching Go scalar
// otherwise. Struct returns come back as their native bytes.
func (fn *Func) Call(s *Scope, values ...any) (any, error) {
	frame, err := BindArgs(s, fn.decl.Params, values)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(frame.Args))
	for i, p := range frame.Args {
		args[i] = p
	}

	ret, read := fn.retSlot()
	fn.fun.Call(ret, args...)
	// Args carries raw addresses only; the frame's boxes and the prepared
	// descriptors must stay reachable until the native call returns.
	runtime.KeepAlive(frame)
	runtime.KeepAlive(fn)
	return read(), nil
}

// retSlot returns the native return buffer and the reader converting it to
// the value handed back to the caller. Integer returns smaller than a
// register come back widened and are narrowed on read; floats return at
// their own width.
func (fn *Func) retSlot() (unsafe.Pointer, func() any) {
	ret := fn.decl.Ret
	switch {
	case ret.FFI == "&ffi.TypeVoid":
		return nil, func() any { return nil }

	case ret.Class == typemap.StringAutoConvert:
		p := new(*byte)
		return unsafe.Pointer(p), func() any {
			if *p == nil {
				return ""
			}
			return unix.BytePtrToString(*p)
		}

	case strings.HasPrefix(ret.FFI, "&FFIType"):
		// libffi return buffers are at least register sized.
		n := (ret.Size + 7) / 8
		if n == 0 {
			n = 1
		}
		words := make([]uint64, n)
		return unsafe.Pointer(&words[0]), func() any {
			out := make([]byte, ret.Size)
			copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), ret.Size))
			return out
		}

	case ret.FFI == "&ffi.TypePointer":
		p := new(unsafe.Pointer)
		return unsafe.Pointer(p), func() any { return uintptr(*p) }

	case ret.FFI == "&ffi.TypeFloat":
		r := new(float32)
		return unsafe.Pointer(r), func() any { return *r }

	case ret.FFI == "&ffi.TypeDouble":
		r := new(float64)
		return unsafe.Pointer(r), func() any { return *r }

	default:
		r := new(ffi.Arg)
		return unsafe.Pointer(r), func() any { return fn.intValue(*r) }
	}
}

func (fn *Func) intValue(r ffi.Arg) any {
	if fn.retBool {
		return r.Bool()
	}
	switch fn.decl.Ret.FFI {
	case "&ffi.TypeSint8":
		return int8(r)
	case "&ffi.TypeSint16":
		return int16(r)
	case "&ffi.TypeSint32":
		return int32(r)
	case "&ffi.TypeSint64":
		return int64(r)
	case "&ffi.TypeUint8":
		return uint8(r)
	case "&ffi.TypeUint16":
		return uint16(r)
	case "&ffi.TypeUint32":
		return uint32(r)
	}
	return uint64(r)
}
