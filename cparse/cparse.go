package cparse

import (
	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/cparse/internal/parser"
	"github.com/wippyai/ffi-bridge/cparse/internal/pp"
	"github.com/wippyai/ffi-bridge/errors"
)

// Options configures a parse run.
type Options struct {
	// HeaderPaths are the entry headers, processed in order.
	HeaderPaths []string

	// IncludePaths is the search path for #include resolution.
	IncludePaths []string

	// Defines predefines object-like macros, as -D NAME=VALUE would.
	Defines map[string]string

	// Sources is an in-memory overlay consulted before disk, keyed by the
	// exact path or include spelling. Tests and tools use it to parse
	// without touching the filesystem.
	Sources map[string][]byte
}

// Parse runs the directive subset and the declaration parser over the entry
// headers and returns the completed declaration graph. The same inputs
// always produce the same graph.
func Parse(opts Options) (*cdecl.Graph, error) {
	if len(opts.HeaderPaths) == 0 {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "no header paths given")
	}

	res, err := pp.Expand(pp.Options{
		HeaderPaths:  opts.HeaderPaths,
		IncludePaths: opts.IncludePaths,
		Predefines:   opts.Defines,
		Overlay:      opts.Sources,
	})
	if err != nil {
		return nil, err
	}

	return parser.New(res).Parse()
}

// ParseSource parses a single in-memory header.
func ParseSource(name string, src []byte) (*cdecl.Graph, error) {
	return Parse(Options{
		HeaderPaths: []string{name},
		Sources:     map[string][]byte{name: src},
	})
}
