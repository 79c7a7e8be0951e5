package marshal

import (
	stderrors "errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/wippyai/ffi-bridge/cparse"
	liberrors "github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/typemap"
)

func mapFunc(t *testing.T, src, name string) *typemap.FuncInfo {
	t.Helper()
	g, err := cparse.ParseSource("test.h", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, err := typemap.Map(g, typemap.LinuxAMD64)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	fi, ok := m.FuncByName(name)
	if !ok {
		t.Fatalf("function %s not mapped", name)
	}
	return fi
}

func errKind(t *testing.T, err error, want liberrors.Kind) *liberrors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var e *liberrors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %v is not a bridge error", err)
	}
	if e.Kind != want {
		t.Fatalf("kind = %s, want %s (%v)", e.Kind, want, err)
	}
	return e
}

func TestBindArgsUntypedLiterals(t *testing.T) {
	fi := mapFunc(t, "float powf(float base, float exp);\n", "powf")
	s := NewScope()
	defer s.Release()

	f, err := BindArgs(s, fi.Params, []any{2, 10})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}
	if got := *(*float32)(f.Args[0]); got != 2 {
		t.Errorf("base slot = %v, want 2", got)
	}
	if got := *(*float32)(f.Args[1]); got != 10 {
		t.Errorf("exp slot = %v, want 10", got)
	}

	// An untyped float literal surfaces as float64 and still converts.
	f, err = BindArgs(s, fi.Params, []any{2.5, float32(1.5)})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}
	if got := *(*float32)(f.Args[0]); got != 2.5 {
		t.Errorf("base slot = %v, want 2.5", got)
	}
	if got := *(*float32)(f.Args[1]); got != 1.5 {
		t.Errorf("exp slot = %v, want 1.5", got)
	}
}

func TestBindArgsScalarMismatch(t *testing.T) {
	fi := mapFunc(t, "float powf(float base, float exp);\n", "powf")
	s := NewScope()
	defer s.Release()

	_, err := BindArgs(s, fi.Params, []any{"two", 10})
	e := errKind(t, err, liberrors.KindTypeMismatch)
	if e.GoType != "string" {
		t.Errorf("GoType = %q, want string", e.GoType)
	}
	if e.CType != "float" {
		t.Errorf("CType = %q, want float", e.CType)
	}
}

func TestBindArgsByteSliceNeedsConversion(t *testing.T) {
	const src = "void send_packet(const char *data, unsigned long len);\n"
	fi := mapFunc(t, src, "send_packet")
	s := NewScope()
	defer s.Release()

	payload := []byte{1, 2, 3}

	_, err := BindArgs(s, fi.Params, []any{payload, len(payload)})
	e := errKind(t, err, liberrors.KindTypeMismatch)
	if e.GoType != "[]byte" {
		t.Errorf("GoType = %q, want []byte", e.GoType)
	}
	if !strings.Contains(e.Detail, "Scope.Bytes") {
		t.Errorf("detail = %q, want the conversion hint", e.Detail)
	}

	// The explicit conversion yields a Borrowed pointer to the backing
	// array and the length travels separately.
	f, err := BindArgs(s, fi.Params, []any{s.Bytes(payload), len(payload)})
	if err != nil {
		t.Fatalf("BindArgs after conversion: %v", err)
	}
	if got := *(*unsafe.Pointer)(f.Args[0]); got != unsafe.Pointer(&payload[0]) {
		t.Error("data slot does not point at the backing array")
	}
	if got := *(*uint64)(f.Args[1]); got != 3 {
		t.Errorf("len slot = %d, want 3", got)
	}
}

func TestBindArgsMutateByReference(t *testing.T) {
	const src = `#include <stdint.h>

struct device {
    uint64_t id;
    char *name;
};

void device_touch(struct device *d);
`
	fi := mapFunc(t, src, "device_touch")

	type device struct {
		id   uint64
		name *byte
	}

	s := NewScope()
	defer s.Release()

	dev := device{id: 1}
	f, err := BindArgs(s, fi.Params, []any{NewBorrowed(unsafe.Pointer(&dev))})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}

	// The callee sees the caller's storage through the bound pointer.
	callee := (*device)(*(*unsafe.Pointer)(f.Args[0]))
	callee.id = 25

	if dev.id != 25 {
		t.Errorf("dev.id = %d after callee write, want 25", dev.id)
	}
	if dev.name != nil {
		t.Errorf("dev.name = %v, want untouched nil", dev.name)
	}
}

func TestBindArgsStringAutoConvert(t *testing.T) {
	fi := mapFunc(t, "int name_len(const char *name);\n", "name_len")
	s := NewScope()

	f, err := BindArgs(s, fi.Params, []any{"abc"})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}
	if got := s.OwnedCount(); got != 1 {
		t.Errorf("OwnedCount = %d, want 1 owned copy", got)
	}

	p := *(*unsafe.Pointer)(f.Args[0])
	buf := unsafe.Slice((*byte)(p), 4)
	if string(buf[:3]) != "abc" || buf[3] != 0 {
		t.Errorf("bound string = %v, want abc NUL", buf)
	}

	s.Release()
	if got := s.OwnedCount(); got != 0 {
		t.Errorf("OwnedCount after release = %d, want 0", got)
	}
}

func TestBindArgsStringNeedsScope(t *testing.T) {
	fi := mapFunc(t, "int name_len(const char *name);\n", "name_len")

	_, err := BindArgs(nil, fi.Params, []any{"abc"})
	errKind(t, err, liberrors.KindInvalidData)
}

func TestBindArgsHandlePassThrough(t *testing.T) {
	const src = `struct calc;
void calc_free(struct calc *c);
`
	fi := mapFunc(t, src, "calc_free")

	type calcHandle uintptr

	s := NewScope()
	defer s.Release()

	f, err := BindArgs(s, fi.Params, []any{calcHandle(0xbeef)})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}
	if got := *(*uintptr)(f.Args[0]); got != 0xbeef {
		t.Errorf("handle slot = %#x, want 0xbeef", got)
	}
}

func TestBindArgsStructByValue(t *testing.T) {
	const src = `struct vec { float x; float y; };
float vec_len(struct vec v);
`
	fi := mapFunc(t, src, "vec_len")

	type vec struct {
		x float32
		y float32
	}

	s := NewScope()
	defer s.Release()

	v := vec{x: 3, y: 4}
	f, err := BindArgs(s, fi.Params, []any{NewBorrowed(unsafe.Pointer(&v))})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}
	// By-value struct slots aim straight at the struct storage.
	if f.Args[0] != unsafe.Pointer(&v) {
		t.Error("struct slot is not the struct's own storage")
	}

	_, err = BindArgs(s, fi.Params, []any{v})
	e := errKind(t, err, liberrors.KindTypeMismatch)
	if !strings.Contains(e.Detail, "scope pointer") {
		t.Errorf("detail = %q, want the pointer hint", e.Detail)
	}
}

func TestBindArgsIntegerRanges(t *testing.T) {
	t.Run("signed_overflow", func(t *testing.T) {
		fi := mapFunc(t, "void set_level(signed char level);\n", "set_level")
		s := NewScope()
		defer s.Release()

		_, err := BindArgs(s, fi.Params, []any{300})
		errKind(t, err, liberrors.KindOverflow)

		f, err := BindArgs(s, fi.Params, []any{-5})
		if err != nil {
			t.Fatalf("BindArgs: %v", err)
		}
		if got := *(*int8)(f.Args[0]); got != -5 {
			t.Errorf("slot = %d, want -5", got)
		}
	})

	t.Run("negative_to_unsigned", func(t *testing.T) {
		fi := mapFunc(t, "void set_count(unsigned int n);\n", "set_count")
		s := NewScope()
		defer s.Release()

		_, err := BindArgs(s, fi.Params, []any{-1})
		errKind(t, err, liberrors.KindOverflow)

		f, err := BindArgs(s, fi.Params, []any{7})
		if err != nil {
			t.Fatalf("BindArgs: %v", err)
		}
		if got := *(*uint32)(f.Args[0]); got != 7 {
			t.Errorf("slot = %d, want 7", got)
		}
	})

	t.Run("typed_float_never_converts_to_int", func(t *testing.T) {
		fi := mapFunc(t, "void set_count(unsigned int n);\n", "set_count")
		s := NewScope()
		defer s.Release()

		_, err := BindArgs(s, fi.Params, []any{float64(7)})
		errKind(t, err, liberrors.KindTypeMismatch)
	})
}

func TestBindArgsBoolAndEnum(t *testing.T) {
	const src = `#include <stdbool.h>

enum color { RED, GREEN, BLUE };

void set_flag(bool on);
void paint(enum color c);
`
	s := NewScope()
	defer s.Release()

	fi := mapFunc(t, src, "set_flag")
	f, err := BindArgs(s, fi.Params, []any{true})
	if err != nil {
		t.Fatalf("BindArgs(set_flag): %v", err)
	}
	if got := *(*uint8)(f.Args[0]); got != 1 {
		t.Errorf("bool slot = %d, want 1", got)
	}

	fi = mapFunc(t, src, "paint")
	f, err = BindArgs(s, fi.Params, []any{2})
	if err != nil {
		t.Fatalf("BindArgs(paint): %v", err)
	}
	if got := *(*int32)(f.Args[0]); got != 2 {
		t.Errorf("enum slot = %d, want 2", got)
	}
}

func TestBindArgsNilPointer(t *testing.T) {
	const src = `struct device { int id; };
void device_touch(struct device *d);
`
	fi := mapFunc(t, src, "device_touch")
	s := NewScope()
	defer s.Release()

	f, err := BindArgs(s, fi.Params, []any{nil})
	if err != nil {
		t.Fatalf("BindArgs: %v", err)
	}
	if got := *(*unsafe.Pointer)(f.Args[0]); got != nil {
		t.Errorf("slot = %v, want null pointer", got)
	}

	scalar := mapFunc(t, "void set_count(unsigned int n);\n", "set_count")
	_, err = BindArgs(s, scalar.Params, []any{nil})
	errKind(t, err, liberrors.KindNilPointer)
}

func TestBindArgsArity(t *testing.T) {
	fi := mapFunc(t, "float powf(float base, float exp);\n", "powf")
	s := NewScope()
	defer s.Release()

	_, err := BindArgs(s, fi.Params, []any{1})
	e := errKind(t, err, liberrors.KindInvalidData)
	if !strings.Contains(e.Detail, "2 arguments") {
		t.Errorf("detail = %q, want arity text", e.Detail)
	}
}

func TestClassifyValue(t *testing.T) {
	s := NewScope()
	defer s.Release()

	cases := []struct {
		name  string
		value any
		class typemap.Classification
		want  typemap.Classification
	}{
		{"untyped_int_to_scalar", 2, typemap.ScalarAutoConvert, typemap.ScalarAutoConvert},
		{"string_to_string", "s", typemap.StringAutoConvert, typemap.StringAutoConvert},
		{"bytes_to_string", []byte{1}, typemap.StringAutoConvert, typemap.NeedsExplicitConversion},
		{"bytes_to_pointer", []byte{1}, typemap.OpaqueHandle, typemap.NeedsExplicitConversion},
		{"scope_ptr_passes", s.Bytes([]byte{1}), typemap.StringAutoConvert, typemap.OpaqueHandle},
		{"handle_passes", uintptr(1), typemap.OpaqueHandle, typemap.OpaqueHandle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyValue(tc.value, tc.class); got != tc.want {
				t.Errorf("ClassifyValue = %v, want %v", got, tc.want)
			}
		})
	}
}
