package emit

import (
	"bytes"
	"fmt"
	"text/template"
)

const loaderTemplate = `package {{.Package}}

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/jupiterrider/ffi"
)

var lib ffi.Lib

func Load(path string) error {
	var err error
	lib, err = ffi.Load(getLibraryPath(path))
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	if err := loadFuncs(); err != nil {
		return err
	}

	return nil
}

func getLibraryPath(basePath string) string {
	var filename string
	switch runtime.GOOS {
	case "linux", "freebsd":
		filename = "lib{{.LibName}}.so"
	case "darwin":
		filename = "lib{{.LibName}}.dylib"
	case "windows":
		filename = "{{.LibName}}.dll"
	default:
		filename = "lib{{.LibName}}.so"
	}
	return filepath.Join(basePath, filename)
}
`

func (g *generator) loaderFile() ([]byte, error) {
	t, err := template.New("loader").Parse(loaderTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]string{
		"Package": g.pkg,
		"LibName": g.lib,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *generator) manifestFile(man SymbolManifest) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "package %s\n\n", g.pkg)
	fmt.Fprintf(&b, "// Symbols lists every native symbol this package binds, in declaration order.\n")
	fmt.Fprintf(&b, "var Symbols = []string{\n")
	for _, s := range man.Symbols {
		fmt.Fprintf(&b, "\t%q,\n", s.Name)
	}
	fmt.Fprintf(&b, "}\n")
	return b.Bytes()
}
