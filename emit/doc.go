// Package emit renders mapped C declarations into a Go binding package.
//
// The output targets github.com/jupiterrider/ffi: struct types with exact
// native layout, ffi.NewType descriptors, opaque handle types, a loader
// that preps every symbol, and one wrapper per function performing the
// classification-driven conversions. Emission walks declarations in graph
// order and uses fixed template text, so identical inputs produce
// byte-identical files.
//
// Alongside the files, Emit reports the ordered symbol manifest consumed
// by the link resolver, detected constructor/destructor factory pairs, and
// diagnostics for declarations that bind with caveats (variadic
// prototypes, by-value struct mutators).
package emit
