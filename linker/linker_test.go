package linker

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/ffi-bridge/emit"
	liberrors "github.com/wippyai/ffi-bridge/errors"
)

func manifestOf(names ...string) emit.SymbolManifest {
	var m emit.SymbolManifest
	for _, n := range names {
		m.Symbols = append(m.Symbols, emit.Symbol{Name: n})
	}
	return m
}

func TestResolveBindsFirstProvider(t *testing.T) {
	man := manifestOf("calc_add", "calc_free")
	first := NewStaticLibrary("libcalc.so", "calc_add")
	second := NewStaticLibrary("libcalc-full.so", "calc_add", "calc_free")

	res, err := Resolve(man, first, second)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if lib, ok := res.Library("calc_add"); !ok || lib != "libcalc.so" {
		t.Errorf("calc_add bound to %q, want libcalc.so", lib)
	}
	if lib, ok := res.Library("calc_free"); !ok || lib != "libcalc-full.so" {
		t.Errorf("calc_free bound to %q, want libcalc-full.so", lib)
	}

	if got := res.Symbols(); len(got) != 2 || got[0] != "calc_add" || got[1] != "calc_free" {
		t.Errorf("Symbols() = %v", got)
	}
	if got := res.Libraries(); len(got) != 2 || got[0] != "libcalc-full.so" || got[1] != "libcalc.so" {
		t.Errorf("Libraries() = %v", got)
	}
}

func TestResolveMissingSymbols(t *testing.T) {
	man := manifestOf("vec_len", "vec_scale")
	lib := NewStaticLibrary("libvec.so", "vec_len")

	_, err := Resolve(man, lib)
	if err == nil {
		t.Fatal("Resolve succeeded with a missing symbol")
	}

	var unresolved *liberrors.UnresolvedSymbolsError
	if !stderrors.As(err, &unresolved) {
		t.Fatalf("error %T is not UnresolvedSymbolsError", err)
	}
	if len(unresolved.Symbols) != 1 || unresolved.Symbols[0] != "vec_scale" {
		t.Errorf("missing = %v, want [vec_scale]", unresolved.Symbols)
	}
	if len(unresolved.Searched) != 1 || unresolved.Searched[0] != "libvec.so" {
		t.Errorf("searched = %v, want [libvec.so]", unresolved.Searched)
	}
	if !strings.Contains(err.Error(), "vec_scale") || !strings.Contains(err.Error(), "libvec.so") {
		t.Errorf("error text missing symbol or library: %v", err)
	}
}

func TestResolveMangledHint(t *testing.T) {
	man := manifestOf("vec_scale")
	lib := NewStaticLibrary("libvec.so", "vec_len").
		WithMangled("_ZN3geo9vec_scaleEv")

	_, err := Resolve(man, lib)
	if err == nil {
		t.Fatal("Resolve succeeded with a missing symbol")
	}

	var unresolved *liberrors.UnresolvedSymbolsError
	if !stderrors.As(err, &unresolved) {
		t.Fatalf("error %T is not UnresolvedSymbolsError", err)
	}
	if len(unresolved.Mangled) != 1 || unresolved.Mangled[0] != "_ZN3geo9vec_scaleEv" {
		t.Errorf("mangled hints = %v", unresolved.Mangled)
	}
	if !strings.Contains(err.Error(), `extern "C"`) {
		t.Errorf("error text missing the extern hint: %v", err)
	}
}

func TestResolveEmptyManifest(t *testing.T) {
	res, err := Resolve(emit.SymbolManifest{}, NewStaticLibrary("lib.so"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := res.Symbols(); len(got) != 0 {
		t.Errorf("Symbols() = %v, want empty", got)
	}
}

func TestResolveNoLibraries(t *testing.T) {
	_, err := Resolve(manifestOf("powf"))
	if err == nil {
		t.Fatal("Resolve succeeded with no libraries")
	}
	var unresolved *liberrors.UnresolvedSymbolsError
	if !stderrors.As(err, &unresolved) {
		t.Fatalf("error %T is not UnresolvedSymbolsError", err)
	}
	if len(unresolved.Symbols) != 1 || unresolved.Symbols[0] != "powf" {
		t.Errorf("missing = %v, want [powf]", unresolved.Symbols)
	}
}

func TestDemangledMatches(t *testing.T) {
	cases := []struct {
		mangled string
		sym     string
		want    bool
	}{
		{"_ZN3geo9vec_scaleEv", "vec_scale", true},
		{"_ZN9vec_scaleEv", "vec_scale", true},
		{"_ZN3geo7vec_addEv", "vec_scale", false},
		{"vec_scale", "vec_scale", false}, // not mangled at all
	}
	for _, tc := range cases {
		if got := demangledMatches(tc.mangled, tc.sym); got != tc.want {
			t.Errorf("demangledMatches(%q, %q) = %v, want %v", tc.mangled, tc.sym, got, tc.want)
		}
	}
}
