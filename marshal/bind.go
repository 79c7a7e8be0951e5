package marshal

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unsafe"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/typemap"
)

// Frame is a prepared native argument vector: one pointer per parameter,
// each aimed at storage of the parameter's exact native width. The frame
// must stay reachable while the call runs.
type Frame struct {
	Args []unsafe.Pointer
	hold []any
}

// ClassifyValue reports how a dynamic call-site value relates to a
// parameter of class c. Untyped literals surface in the dynamic path as
// int, float64 and string; those and width-matching scalars auto-convert.
// Length-carrying byte sequences bound to pointer parameters need an
// explicit scope conversion. Scope pointers and handles pass through.
func ClassifyValue(v any, c typemap.Classification) typemap.Classification {
	switch v.(type) {
	case Ptr:
		return typemap.OpaqueHandle
	case []byte:
		if c == typemap.StringAutoConvert || c == typemap.OpaqueHandle {
			return typemap.NeedsExplicitConversion
		}
		return c
	}
	if c == typemap.OpaqueHandle && reflect.ValueOf(v).Kind() == reflect.Uintptr {
		return typemap.OpaqueHandle
	}
	return c
}

// BindArgs runs the conversion state machine over one call site and
// returns the prepared frame. Values classified NeedsExplicitConversion
// fail with a type mismatch naming the scope operation to use; nothing is
// truncated silently. String auto-conversions allocate Owned copies in s.
func BindArgs(s *Scope, params []typemap.ParamInfo, values []any) (*Frame, error) {
	if len(values) != len(params) {
		return nil, errors.InvalidData(errors.PhaseMarshal, nil,
			fmt.Sprintf("call takes %d arguments, %d given", len(params), len(values)))
	}
	f := &Frame{Args: make([]unsafe.Pointer, len(params))}
	for i, p := range params {
		sl, err := bindValue(s, p, values[i], paramPath(p, i))
		if err != nil {
			return nil, err
		}
		f.Args[i] = sl.ptr
		f.hold = append(f.hold, sl.box)
	}
	return f, nil
}

func paramPath(p typemap.ParamInfo, i int) []string {
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("parameter %d", i+1)
	}
	return []string{name}
}

type slot struct {
	ptr unsafe.Pointer
	box any
}

func bindValue(s *Scope, p typemap.ParamInfo, v any, path []string) (slot, error) {
	if ptr, ok := v.(Ptr); ok {
		return bindPtr(p, ptr, path)
	}
	if v == nil {
		if pointerShaped(p.Info) {
			return pointerSlot(nil), nil
		}
		return slot{}, errors.NilPointer(errors.PhaseMarshal, path, p.Info.Go)
	}
	if _, ok := v.([]byte); ok {
		return bindByteSeq(p, path)
	}

	switch p.Info.Class {
	case typemap.StringAutoConvert:
		return bindString(s, p, v, path)
	case typemap.OpaqueHandle:
		return bindHandle(p, v, path)
	default:
		return bindScalar(p, v, path)
	}
}

// bindPtr passes a scope-produced pointer through. Struct-by-value slots
// point straight at the struct storage; pointer slots box the address.
func bindPtr(p typemap.ParamInfo, ptr Ptr, path []string) (slot, error) {
	if strings.HasPrefix(p.Info.FFI, "&FFIType") {
		return slot{ptr: ptr.Addr(), box: ptr}, nil
	}
	if pointerShaped(p.Info) {
		return pointerSlot(ptr.Addr()), nil
	}
	return slot{}, errors.TypeMismatch(path, "marshal.Ptr", p.Info.C.String())
}

// bindByteSeq rejects the length-dropping shortcut: a []byte aimed at a
// bare pointer parameter must go through Scope.Bytes so the caller decides
// how the length travels.
func bindByteSeq(p typemap.ParamInfo, path []string) (slot, error) {
	err := errors.TypeMismatch(path, "[]byte", p.Info.C.String())
	if pointerShaped(p.Info) {
		err.Detail = "length-carrying sequence bound to a bare pointer; convert through Scope.Bytes to pass its backing storage"
	}
	return slot{}, err
}

func bindString(s *Scope, p typemap.ParamInfo, v any, path []string) (slot, error) {
	str, ok := v.(string)
	if !ok {
		return slot{}, errors.TypeMismatch(path, goTypeName(v), p.Info.C.String())
	}
	if s == nil {
		return slot{}, errors.InvalidData(errors.PhaseMarshal, path, "string conversion requires a scope")
	}
	return pointerSlot(s.CString(str).Addr()), nil
}

func bindHandle(p typemap.ParamInfo, v any, path []string) (slot, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Uintptr {
		return slot{}, errors.TypeMismatch(path, goTypeName(v), p.Info.C.String())
	}
	box := new(uintptr)
	*box = uintptr(rv.Uint())
	return slot{ptr: unsafe.Pointer(box), box: box}, nil
}

// bindScalar boxes an auto-convertible value at the parameter's native
// width, selected by its ffi descriptor. Integer narrowing is range
// checked so nothing truncates silently.
func bindScalar(p typemap.ParamInfo, v any, path []string) (slot, error) {
	if strings.HasPrefix(p.Info.FFI, "&FFIType") {
		err := errors.TypeMismatch(path, goTypeName(v), p.Info.C.String())
		err.Detail = "structs cross the dynamic path by pointer; pass a scope pointer to the value"
		return slot{}, err
	}

	switch p.Info.FFI {
	case "&ffi.TypeFloat":
		if f, ok := toFloat(v); ok {
			return box(float32(f)), nil
		}
	case "&ffi.TypeDouble":
		if f, ok := toFloat(v); ok {
			return box(f), nil
		}
	case "&ffi.TypeSint8":
		return intSlot(v, math.MinInt8, math.MaxInt8, func(n int64) slot { return box(int8(n)) }, p, path)
	case "&ffi.TypeSint16":
		return intSlot(v, math.MinInt16, math.MaxInt16, func(n int64) slot { return box(int16(n)) }, p, path)
	case "&ffi.TypeSint32":
		return intSlot(v, math.MinInt32, math.MaxInt32, func(n int64) slot { return box(int32(n)) }, p, path)
	case "&ffi.TypeSint64":
		return intSlot(v, math.MinInt64, math.MaxInt64, func(n int64) slot { return box(n) }, p, path)
	case "&ffi.TypeUint8":
		if b, ok := v.(bool); ok {
			var n uint8
			if b {
				n = 1
			}
			return box(n), nil
		}
		return uintSlot(v, math.MaxUint8, func(n uint64) slot { return box(uint8(n)) }, p, path)
	case "&ffi.TypeUint16":
		return uintSlot(v, math.MaxUint16, func(n uint64) slot { return box(uint16(n)) }, p, path)
	case "&ffi.TypeUint32":
		return uintSlot(v, math.MaxUint32, func(n uint64) slot { return box(uint32(n)) }, p, path)
	case "&ffi.TypeUint64":
		return uintSlot(v, math.MaxUint64, func(n uint64) slot { return box(n) }, p, path)
	}
	return slot{}, errors.TypeMismatch(path, goTypeName(v), p.Info.C.String())
}

func intSlot(v any, min, max int64, mk func(int64) slot, p typemap.ParamInfo, path []string) (slot, error) {
	n, ok := toInt(v)
	if !ok {
		return slot{}, errors.TypeMismatch(path, goTypeName(v), p.Info.C.String())
	}
	if n < min || n > max {
		return slot{}, errors.Overflow(errors.PhaseMarshal, path, v, p.Info.C.String())
	}
	return mk(n), nil
}

func uintSlot(v any, max uint64, mk func(uint64) slot, p typemap.ParamInfo, path []string) (slot, error) {
	u, ok := toUint(v)
	if !ok {
		if n, isInt := toInt(v); isInt && n < 0 {
			return slot{}, errors.Overflow(errors.PhaseMarshal, path, v, p.Info.C.String())
		}
		return slot{}, errors.TypeMismatch(path, goTypeName(v), p.Info.C.String())
	}
	if u > max {
		return slot{}, errors.Overflow(errors.PhaseMarshal, path, v, p.Info.C.String())
	}
	return mk(u), nil
}

func box[T any](v T) slot {
	p := new(T)
	*p = v
	return slot{ptr: unsafe.Pointer(p), box: p}
}

func pointerSlot(addr unsafe.Pointer) slot {
	pp := new(unsafe.Pointer)
	*pp = addr
	return slot{ptr: unsafe.Pointer(pp), box: pp}
}

func pointerShaped(ti typemap.TypeInfo) bool {
	return ti.FFI == "&ffi.TypePointer"
}

// toFloat accepts the dynamic surrogates of untyped numeric literals plus
// width-matching typed floats.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// toUint accepts non-negative integer-typed values.
func toUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int8:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int16:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int32:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

// toInt accepts integer-typed values only. Typed floats never convert to
// integer parameters; their binary representation does not match.
func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
