package linker

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/emit"
	"github.com/wippyai/ffi-bridge/errors"
)

// Library is a named provider of callable native symbols.
type Library interface {
	// Name identifies the library in resolutions and error output.
	Name() string

	// Symbols lists the callable symbols the library exports.
	Symbols() ([]string, error)
}

// MangledLister is implemented by libraries that can report C++-mangled
// exports. Resolve uses them to hint at missing extern "C" declarations
// when a manifest symbol is absent but a mangled match exists.
type MangledLister interface {
	Mangled() []string
}

// Resolution maps every manifest symbol to the library that provides it.
type Resolution struct {
	bindings map[string]string
}

// Library returns the provider bound to symbol.
func (r *Resolution) Library(symbol string) (string, bool) {
	name, ok := r.bindings[symbol]
	return name, ok
}

// Symbols returns the resolved symbol names in sorted order.
func (r *Resolution) Symbols() []string {
	out := make([]string, 0, len(r.bindings))
	for sym := range r.bindings {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Libraries returns the distinct provider names in sorted order.
func (r *Resolution) Libraries() []string {
	seen := make(map[string]bool)
	for _, name := range r.bindings {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve checks each manifest symbol against the libraries in the order
// given; the first provider wins. If any symbol has no provider the whole
// resolution fails with an UnresolvedSymbolsError naming every missing
// symbol, the libraries searched, and any mangled near-misses.
func Resolve(manifest emit.SymbolManifest, libs ...Library) (*Resolution, error) {
	type provider struct {
		name    string
		set     map[string]bool
		mangled []string
	}

	providers := make([]provider, 0, len(libs))
	searched := make([]string, 0, len(libs))
	for _, lib := range libs {
		syms, err := lib.Symbols()
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(syms))
		for _, s := range syms {
			set[s] = true
		}
		p := provider{name: lib.Name(), set: set}
		if ml, ok := lib.(MangledLister); ok {
			p.mangled = ml.Mangled()
		}
		providers = append(providers, p)
		searched = append(searched, lib.Name())
	}

	res := &Resolution{bindings: make(map[string]string, len(manifest.Symbols))}
	var missing []string
	var hints []string
	for _, sym := range manifest.Names() {
		bound := false
		for _, p := range providers {
			if p.set[sym] {
				res.bindings[sym] = p.name
				bound = true
				break
			}
		}
		if bound {
			continue
		}
		missing = append(missing, sym)
		for _, p := range providers {
			for _, m := range p.mangled {
				if demangledMatches(m, sym) {
					hints = append(hints, m)
				}
			}
		}
	}

	if len(missing) > 0 {
		err := errors.NewUnresolvedSymbolsError(missing, searched)
		err.Mangled = dedupe(hints)
		return nil, err
	}

	Logger().Debug("manifest resolved",
		zap.Int("symbols", len(res.bindings)),
		zap.Strings("libraries", searched))
	return res, nil
}

// demangledMatches reports whether the mangled export demangles to sym,
// either exactly or as the last path component of a namespaced name.
func demangledMatches(mangled, sym string) bool {
	d := errors.DemangleCXX(mangled)
	if d == mangled {
		return false
	}
	return d == sym || strings.HasSuffix(d, "::"+sym)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
