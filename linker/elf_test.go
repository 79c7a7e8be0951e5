package linker

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	liberrors "github.com/wippyai/ffi-bridge/errors"
)

func findSharedObject(t *testing.T) string {
	t.Helper()
	candidates := []string{
		"/lib/x86_64-linux-gnu/libc.so.6",
		"/usr/lib/x86_64-linux-gnu/libc.so.6",
		"/lib/aarch64-linux-gnu/libc.so.6",
		"/lib64/libc.so.6",
		"/usr/lib/libc.so.6",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skip("no shared C library available to inspect")
	return ""
}

func TestOpenELFSharedObject(t *testing.T) {
	path := findSharedObject(t)

	lib, err := OpenELF(path)
	if err != nil {
		t.Fatalf("OpenELF(%s): %v", path, err)
	}

	if got := lib.Name(); got != filepath.Base(path) {
		t.Errorf("Name() = %q, want %q", got, filepath.Base(path))
	}

	syms, err := lib.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) == 0 {
		t.Fatal("Symbols() returned no defined functions")
	}
	if !sort.StringsAreSorted(syms) {
		t.Error("Symbols() not sorted")
	}

	i := sort.SearchStrings(syms, "printf")
	if i >= len(syms) || syms[i] != "printf" {
		t.Errorf("libc symbols missing printf")
	}
}

func TestOpenELFMissingFile(t *testing.T) {
	_, err := OpenELF(filepath.Join(t.TempDir(), "absent.so"))
	if err == nil {
		t.Fatal("OpenELF succeeded on a missing file")
	}
}

func TestOpenELFNotELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.so")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenELF(path)
	if err == nil {
		t.Fatal("OpenELF succeeded on a non-ELF file")
	}
	var lerr *liberrors.Error
	if !stderrors.As(err, &lerr) || lerr.Kind != liberrors.KindIO {
		t.Errorf("error = %v, want load-phase io error", err)
	}
}
