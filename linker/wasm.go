package linker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
)

// WasmLibrary lists the exported functions of a compiled WebAssembly
// module, for manifests targeting the wasm32 platform.
type WasmLibrary struct {
	name    string
	symbols []string
}

// OpenWasm compiles the module at path and records its function exports.
// The compilation is inspection-only; nothing is instantiated.
func OpenWasm(ctx context.Context, path string) (*WasmLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("reading %s", path), err)
	}
	lib, err := NewWasmLibrary(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	Logger().Debug("wasm library opened",
		zap.String("path", path),
		zap.Int("functions", len(lib.symbols)))
	return lib, nil
}

// NewWasmLibrary compiles wasmBytes and records its function exports
// under the given library name.
func NewWasmLibrary(ctx context.Context, name string, wasmBytes []byte) (*WasmLibrary, error) {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("compiling wasm library %s", name), err)
	}
	defer compiled.Close(ctx)

	lib := &WasmLibrary{name: name}
	for exportName := range compiled.ExportedFunctions() {
		lib.symbols = append(lib.symbols, exportName)
	}
	sort.Strings(lib.symbols)
	return lib, nil
}

// Name returns the library name.
func (l *WasmLibrary) Name() string { return l.name }

// Symbols returns the exported function names in sorted order.
func (l *WasmLibrary) Symbols() ([]string, error) { return l.symbols, nil }
