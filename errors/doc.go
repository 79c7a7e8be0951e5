// Package errors provides structured error types for the ffi-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: declaration path, header location, Go/C type
// names, symbol and library names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("point_set", "name").
//		GoType("[]byte").
//		CType("const char *").
//		Detail("sequence requires explicit conversion").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Parse("vector.h", 12, "expected ';' after declarator")
//	err := errors.UnresolvedSymbol("vec_scale", "libvec.so")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
