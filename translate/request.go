package translate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/typemap"
)

// Request describes one translation: which headers, under which
// configuration, for which target.
type Request struct {
	// HeaderPaths are the entry headers, translated in order.
	HeaderPaths []string

	// Defines predefines object-like macros, as -D NAME=VALUE would.
	Defines map[string]string

	// IncludePaths is the search path for #include resolution.
	IncludePaths []string

	// Sources is an in-memory overlay consulted before disk, keyed by the
	// exact path or include spelling. Tests and tools use it to translate
	// without touching the filesystem.
	Sources map[string][]byte

	// Platform selects the target data model. The zero value means
	// linux-amd64.
	Platform typemap.Platform

	// Package names the generated package. Empty means "bindings".
	Package string

	// Library is the native library base name the generated loader opens.
	// Empty means the package name.
	Library string
}

// Fingerprint identifies a translation input set. Equal fingerprints produce
// byte-identical generated modules.
type Fingerprint string

// Short returns the leading fingerprint digits, for logs and temp names.
func (f Fingerprint) Short() string {
	if len(f) > 12 {
		return string(f[:12])
	}
	return string(f)
}

// Fingerprint hashes the full input set: entry header bytes in path order,
// sorted defines, include paths, platform, and output naming. Transitively
// included files are not covered; flush the cache when one changes.
func (r Request) Fingerprint() (Fingerprint, error) {
	r = r.normalized()
	headers, err := readHeaders(r)
	if err != nil {
		return "", err
	}
	return fingerprintOf(r, headers), nil
}

func (r Request) normalized() Request {
	if r.Platform.Name == "" {
		r.Platform = typemap.LinuxAMD64
	}
	if r.Package == "" {
		r.Package = "bindings"
	}
	if r.Library == "" {
		r.Library = r.Package
	}
	return r
}

// readHeaders fetches the entry header bytes, overlay first, in path order.
func readHeaders(req Request) ([][]byte, error) {
	if len(req.HeaderPaths) == 0 {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "no header paths given")
	}
	bufs := make([][]byte, len(req.HeaderPaths))
	for i, path := range req.HeaderPaths {
		if src, ok := req.Sources[path]; ok {
			bufs[i] = src
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Load("reading header "+path, err)
		}
		bufs[i] = data
	}
	return bufs, nil
}

// fingerprintOf hashes a normalized request. Every field is framed by its
// length and every section by its count, so no two input sets collide by
// concatenation.
func fingerprintOf(req Request, headers [][]byte) Fingerprint {
	h := sha256.New()
	put := func(b []byte) {
		fmt.Fprintf(h, "%d:", len(b))
		h.Write(b)
	}

	fmt.Fprintf(h, "h%d;", len(req.HeaderPaths))
	for i, path := range req.HeaderPaths {
		put([]byte(path))
		put(headers[i])
	}

	defines := make([]string, 0, len(req.Defines))
	for name, value := range req.Defines {
		defines = append(defines, name+"="+value)
	}
	sort.Strings(defines)
	fmt.Fprintf(h, "d%d;", len(defines))
	for _, d := range defines {
		put([]byte(d))
	}

	fmt.Fprintf(h, "i%d;", len(req.IncludePaths))
	for _, dir := range req.IncludePaths {
		put([]byte(dir))
	}

	put([]byte(req.Platform.Name))
	put([]byte(req.Package))
	put([]byte(req.Library))

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
