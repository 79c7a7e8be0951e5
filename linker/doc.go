// Package linker checks a generated module's symbol manifest against real
// libraries before anything loads at runtime.
//
// # Main Types
//
//   - Library: a named provider of callable symbols
//   - Resolution: the symbol-to-library binding Resolve produces
//
// Backends cover the three library shapes the bridge meets: ELFLibrary
// reads the dynamic symbol table of a shared object, WasmLibrary lists the
// exported functions of a compiled WebAssembly module, and StaticLibrary
// carries an explicit symbol list for build plans and tests.
//
// Resolution stops at name-to-provider mapping. Address binding happens in
// the generated module's loader when it runs.
//
// # Example
//
//	lib, _ := linker.OpenELF("/usr/lib/libcalc.so")
//	res, err := linker.Resolve(mod.Manifest, lib)
//	if err != nil {
//		// err lists every missing symbol and the libraries searched
//	}
package linker
