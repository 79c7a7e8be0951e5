package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/ffi-bridge/translate"
	"github.com/wippyai/ffi-bridge/typemap"
)

// repeatList collects the values of a repeatable flag.
type repeatList []string

func (l *repeatList) String() string { return strings.Join(*l, ",") }

func (l *repeatList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var (
		defines  repeatList
		includes repeatList
	)
	var (
		platform    = flag.String("platform", typemap.LinuxAMD64.Name, "Target platform (linux-amd64, darwin-arm64, windows-amd64, wasm32)")
		pkg         = flag.String("pkg", "bindings", "Generated package name")
		lib         = flag.String("lib", "", "Native library base name (defaults to the package name)")
		emitDir     = flag.String("emit", "", "Write the generated files into this directory")
		list        = flag.Bool("list", false, "List declarations with their layouts and exit")
		cacheDir    = flag.String("cache", "", "Disk cache directory for generated modules")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Var(&defines, "D", "Predefine a macro (NAME or NAME=VALUE, repeatable)")
	flag.Var(&includes, "I", "Add an include search directory (repeatable)")
	flag.Parse()

	headers := flag.Args()
	if len(headers) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: translate [flags] header.h [more.h ...]")
		fmt.Fprintln(os.Stderr, "       translate -emit ./bindings header.h")
		fmt.Fprintln(os.Stderr, "       translate -list header.h")
		fmt.Fprintln(os.Stderr, "       translate -i header.h  (interactive mode)")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		os.Exit(1)
	}

	p, ok := typemap.ByName(*platform)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown platform %q\n", *platform)
		os.Exit(1)
	}

	req := translate.Request{
		HeaderPaths:  headers,
		Defines:      parseDefines(defines),
		IncludePaths: includes,
		Platform:     p,
		Package:      *pkg,
		Library:      *lib,
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(req); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(req, *emitDir, *cacheDir, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseDefines turns -D flags into the predefine map. A bare NAME means
// NAME=1, matching the C compiler convention.
func parseDefines(defs []string) map[string]string {
	if len(defs) == 0 {
		return nil
	}
	m := make(map[string]string, len(defs))
	for _, d := range defs {
		name, value, found := strings.Cut(d, "=")
		if !found {
			value = "1"
		}
		m[name] = value
	}
	return m
}

func run(req translate.Request, emitDir, cacheDir string, listOnly bool) error {
	ctx := context.Background()

	if listOnly {
		return listDeclarations(req)
	}

	var cfg *translate.Config
	if cacheDir != "" {
		cfg = &translate.Config{CacheDir: cacheDir}
	}

	mod, err := translate.NewWithConfig(cfg).Translate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Headers: %s\n", strings.Join(req.HeaderPaths, ", "))
	fmt.Printf("Platform: %s\n", req.Platform.Name)
	fmt.Printf("Package: %s\n", mod.Package)
	for _, d := range mod.Diagnostics {
		fmt.Printf("note: %s: %s\n", d.Symbol, d.Note)
	}

	if emitDir != "" {
		if err := os.MkdirAll(emitDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		names := make([]string, 0, len(mod.Files))
		for name := range mod.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(emitDir, name)
			if err := os.WriteFile(path, mod.Files[name], 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			fmt.Printf("wrote %s\n", path)
		}
		return nil
	}

	fmt.Printf("\nBound symbols:\n")
	for _, s := range mod.Manifest.Symbols {
		params := make([]string, len(s.Params))
		for i, d := range s.Params {
			params[i] = descName(d)
		}
		sig := s.GoName + "(" + strings.Join(params, ", ") + ")"
		if ret := descName(s.Ret); ret != "void" && ret != "" {
			sig += " -> " + ret
		}
		fmt.Printf("  %-24s %s\n", s.Name, sig)
	}
	return nil
}

// descName renders a libffi descriptor expression as a short type name.
func descName(desc string) string {
	switch {
	case strings.HasPrefix(desc, "&ffi.Type"):
		return strings.ToLower(strings.TrimPrefix(desc, "&ffi.Type"))
	case strings.HasPrefix(desc, "&FFIType"):
		return strings.TrimPrefix(desc, "&FFIType")
	default:
		return desc
	}
}
