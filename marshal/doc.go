// Package marshal converts values across the native call boundary.
//
// Every pointer-shaped value that crosses carries an ownership tag: Owned
// values were allocated for the call and must be released, Borrowed values
// alias Go-managed memory and are valid only for the call they were
// produced for. A Scope collects the conversions of one call window and
// releases every Owned allocation on Release, which callers defer so the
// guarantee holds on every exit path.
//
// Conversions follow the value's classification against the target
// parameter. Untyped literals and width-matching scalars auto-convert.
// Length-carrying sequences bound to bare pointer parameters never convert
// silently: the caller must go through Scope.Bytes, which yields a
// Borrowed pointer to the backing array, or the binding fails with a type
// mismatch.
//
// BindArgs prepares the argument vector for the reflective call path used
// by tools and tests. Generated bindings convert inline instead and only
// share the Scope and Ptr plumbing.
//
// On unix hosts the package also carries the dynamic call path itself:
// OpenLibrary loads a shared object against a mapped module, Func prepares
// one prototype's call interface, and Call binds a frame and runs the
// native function. Scopes may draw their Owned storage from page mappings
// outside the Go heap through NewPageAllocator when the native side
// retains pointers past the call.
package marshal
