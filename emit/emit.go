package emit

import (
	"fmt"
	"strings"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/typemap"
)

// Options control the shape of the generated package.
type Options struct {
	// Package is the generated package name. Defaults to "bindings".
	Package string

	// Library is the base library name the generated loader resolves per
	// OS: "calc" loads libcalc.so, libcalc.dylib or calc.dll. Defaults to
	// the package name.
	Library string
}

// Symbol is one native function the generated package binds.
type Symbol struct {
	Name   string   // native symbol name
	GoName string   // generated wrapper name
	Ret    string   // ffi descriptor expression for the return type
	Params []string // ffi descriptor expressions per parameter
}

// SymbolManifest is the extern surface of a generated package, in
// declaration order. The link resolver checks it against real libraries.
type SymbolManifest struct {
	Symbols []Symbol
}

// Names returns the native symbol names in declaration order.
func (m SymbolManifest) Names() []string {
	out := make([]string, len(m.Symbols))
	for i, s := range m.Symbols {
		out[i] = s.Name
	}
	return out
}

// Diagnostic is a warning tied to one declaration. The declaration still
// emits (or is skipped) as the note describes; diagnostics never fail
// emission.
type Diagnostic struct {
	Symbol string
	Note   string
}

// Factory is a detected constructor/destructor pair around an opaque
// handle. The generated handle type gains a Close method calling Release.
type Factory struct {
	Handle  string // Go handle type name
	Create  string // Go constructor wrapper
	Release string // Go destructor wrapper
}

// GeneratedModule holds the rendered files of one translation plus the
// metadata other stages consume.
type GeneratedModule struct {
	Package     string
	Files       map[string][]byte
	Manifest    SymbolManifest
	Factories   []Factory
	Diagnostics []Diagnostic
}

// Emit renders the mapped declarations as a Go package. The same mapped
// input always produces byte-identical output.
func Emit(m *typemap.Mapped, opts Options) (*GeneratedModule, error) {
	if m == nil {
		return nil, errors.InvalidData(errors.PhaseEmit, nil, "no mapped declarations given")
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = "bindings"
	}
	lib := opts.Library
	if lib == "" {
		lib = pkg
	}

	g := &generator{m: m, pkg: pkg, lib: lib}
	mod := &GeneratedModule{Package: pkg, Files: make(map[string][]byte)}
	g.plan(mod)

	mod.Files["types.go"] = g.typesFile()
	mod.Files["functions.go"] = g.functionsFile(mod.Factories)
	loader, err := g.loaderFile()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, "rendering loader for package "+pkg)
	}
	mod.Files["loader.go"] = loader
	mod.Files["manifest.go"] = g.manifestFile(mod.Manifest)

	return mod, nil
}

type generator struct {
	m   *typemap.Mapped
	pkg string
	lib string

	bind []*typemap.FuncInfo // functions that receive bindings
}

// plan decides which functions bind, fills the manifest, and collects
// diagnostics and factory pairs before any rendering happens.
func (g *generator) plan(mod *GeneratedModule) {
	for _, fi := range g.m.Funcs {
		if fi.Variadic {
			mod.Diagnostics = append(mod.Diagnostics, Diagnostic{
				Symbol: fi.Decl.Name,
				Note:   "variadic prototype; no binding generated",
			})
			continue
		}
		g.bind = append(g.bind, fi)

		sym := Symbol{Name: fi.Decl.Name, GoName: fi.GoName, Ret: fi.Ret.FFI}
		for _, p := range fi.Params {
			sym.Params = append(sym.Params, p.Info.FFI)
		}
		mod.Manifest.Symbols = append(mod.Manifest.Symbols, sym)

		if note, ok := mutationNote(fi); ok {
			mod.Diagnostics = append(mod.Diagnostics, Diagnostic{Symbol: fi.Decl.Name, Note: note})
		}
	}
	mod.Factories = g.factories()
}

// mutationNote flags void functions whose name suggests mutation but whose
// struct parameter crosses by value, so the native side only sees a copy.
func mutationNote(fi *typemap.FuncInfo) (string, bool) {
	if fi.Ret.Go != "" {
		return "", false
	}
	name := strings.ToLower(fi.Decl.Name)
	if !strings.Contains(name, "set") && !strings.Contains(name, "update") && !strings.Contains(name, "reset") {
		return "", false
	}
	for _, p := range fi.Params {
		if strings.HasPrefix(p.Info.FFI, "&FFIType") {
			return fmt.Sprintf("struct %s is passed by value; the native side mutates a copy", strings.TrimPrefix(p.Info.FFI, "&FFIType")), true
		}
	}
	return "", false
}

var (
	createSuffixes  = []string{"_create", "_new", "_open", "_init"}
	releaseSuffixes = []string{"_free", "_destroy", "_close", "_release"}
)

// factories pairs the first handle-returning constructor with the first
// handle-consuming destructor per opaque handle type, by name suffix.
func (g *generator) factories() []Factory {
	type pair struct {
		create  string
		release string
	}
	byHandle := make(map[string]*pair)
	var order []string

	claim := func(handle string) *pair {
		p, ok := byHandle[handle]
		if !ok {
			p = &pair{}
			byHandle[handle] = p
			order = append(order, handle)
		}
		return p
	}

	for _, fi := range g.bind {
		if isHandle(fi.Ret) && hasAnySuffix(fi.Decl.Name, createSuffixes) {
			if p := claim(fi.Ret.Go); p.create == "" {
				p.create = fi.GoName
			}
		}
		if fi.Ret.Go == "" && len(fi.Params) == 1 && isHandle(fi.Params[0].Info) &&
			hasAnySuffix(fi.Decl.Name, releaseSuffixes) {
			if p := claim(fi.Params[0].Info.Go); p.release == "" {
				p.release = fi.GoName
			}
		}
	}

	var out []Factory
	for _, h := range order {
		p := byHandle[h]
		if p.create != "" && p.release != "" {
			out = append(out, Factory{Handle: h, Create: p.create, Release: p.release})
		}
	}
	return out
}

// isHandle reports whether the type is a named opaque handle, as opposed to
// a bare uintptr or a typed pointer.
func isHandle(ti typemap.TypeInfo) bool {
	return ti.Class == typemap.OpaqueHandle && ti.Go != "uintptr" && !strings.HasPrefix(ti.Go, "*")
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
