package linker

import (
	"debug/elf"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
)

// ELFLibrary lists the function symbols a shared object actually exports,
// read from its dynamic symbol table.
type ELFLibrary struct {
	name    string
	symbols []string
	mangled []string
}

// OpenELF reads the dynamic symbol table of the shared object at path.
// Only defined STT_FUNC entries count as provided; undefined entries are
// the object's own imports.
func OpenELF(path string) (*ELFLibrary, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("opening %s as ELF", path), err)
	}
	defer f.Close()

	dynsyms, err := f.DynamicSymbols()
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("reading dynamic symbols of %s", path), err)
	}

	lib := &ELFLibrary{name: filepath.Base(path)}
	for _, s := range dynsyms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Section == elf.SHN_UNDEF {
			continue
		}
		lib.symbols = append(lib.symbols, s.Name)
		if strings.HasPrefix(s.Name, "_ZN") {
			lib.mangled = append(lib.mangled, s.Name)
		}
	}
	sort.Strings(lib.symbols)

	Logger().Debug("elf library opened",
		zap.String("path", path),
		zap.Int("functions", len(lib.symbols)))
	return lib, nil
}

// Name returns the library's file name.
func (l *ELFLibrary) Name() string { return l.name }

// Symbols returns the exported function names in sorted order.
func (l *ELFLibrary) Symbols() ([]string, error) { return l.symbols, nil }

// Mangled returns the C++-mangled exports, for extern "C" hints.
func (l *ELFLibrary) Mangled() []string { return l.mangled }
