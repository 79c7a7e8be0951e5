package linker

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	liberrors "github.com/wippyai/ffi-bridge/errors"
)

// tinyWasm assembles a minimal valid module exporting the named functions,
// all with signature () -> (). Section sizes stay under 128 bytes so every
// LEB128 length fits in one byte.
func tinyWasm(exports ...string) []byte {
	section := func(id byte, body []byte) []byte {
		out := []byte{id, byte(len(body))}
		return append(out, body...)
	}

	mod := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, section(1, []byte{0x01, 0x60, 0x00, 0x00})...)

	fn := []byte{byte(len(exports))}
	for range exports {
		fn = append(fn, 0x00)
	}
	mod = append(mod, section(3, fn)...)

	exp := []byte{byte(len(exports))}
	for i, name := range exports {
		exp = append(exp, byte(len(name)))
		exp = append(exp, name...)
		exp = append(exp, 0x00, byte(i))
	}
	mod = append(mod, section(7, exp)...)

	code := []byte{byte(len(exports))}
	for range exports {
		code = append(code, 0x02, 0x00, 0x0B)
	}
	mod = append(mod, section(10, code)...)

	return mod
}

func TestWasmLibraryExports(t *testing.T) {
	lib, err := NewWasmLibrary(context.Background(), "calc.wasm", tinyWasm("calc_free", "calc_add"))
	if err != nil {
		t.Fatalf("NewWasmLibrary: %v", err)
	}

	if got := lib.Name(); got != "calc.wasm" {
		t.Errorf("Name() = %q, want calc.wasm", got)
	}

	syms, err := lib.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "calc_add" || syms[1] != "calc_free" {
		t.Errorf("Symbols() = %v, want [calc_add calc_free]", syms)
	}
	if !sort.StringsAreSorted(syms) {
		t.Errorf("Symbols() not sorted: %v", syms)
	}
}

func TestWasmLibraryResolves(t *testing.T) {
	lib, err := NewWasmLibrary(context.Background(), "calc.wasm", tinyWasm("calc_add"))
	if err != nil {
		t.Fatalf("NewWasmLibrary: %v", err)
	}

	res, err := Resolve(manifestOf("calc_add"), lib)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, ok := res.Library("calc_add"); !ok || got != "calc.wasm" {
		t.Errorf("calc_add bound to %q, want calc.wasm", got)
	}
}

func TestOpenWasm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vec.wasm")
	if err := os.WriteFile(path, tinyWasm("vec_len", "vec_scale"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := OpenWasm(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenWasm: %v", err)
	}
	if got := lib.Name(); got != "vec.wasm" {
		t.Errorf("Name() = %q, want vec.wasm", got)
	}
	syms, err := lib.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 2 {
		t.Errorf("Symbols() = %v, want two entries", syms)
	}
}

func TestOpenWasmMissingFile(t *testing.T) {
	_, err := OpenWasm(context.Background(), filepath.Join(t.TempDir(), "absent.wasm"))
	if err == nil {
		t.Fatal("OpenWasm succeeded on a missing file")
	}
}

func TestOpenWasmInvalidModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wasm")
	if err := os.WriteFile(path, []byte("not a module"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenWasm(context.Background(), path)
	if err == nil {
		t.Fatal("OpenWasm succeeded on garbage bytes")
	}
	var lerr *liberrors.Error
	if !stderrors.As(err, &lerr) || lerr.Kind != liberrors.KindIO {
		t.Errorf("error = %v, want load-phase io error", err)
	}
}
