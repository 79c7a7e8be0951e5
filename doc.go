// Package ffibridge translates C headers into Go binding packages with
// identical binary layout and explicit rules for how values cross the
// native boundary.
//
// # Architecture Overview
//
// The library is organized into packages along the translation pipeline:
//
//	ffibridge/           Root package with the process-wide Translate facade
//	├── translate/       One-call pipeline: fingerprinting, memo, disk cache
//	├── cparse/          Header preprocessing and declaration parsing
//	├── cdecl/           The parsed declaration graph and C type model
//	├── typemap/         Platform data models, layout, and classification
//	├── emit/            Deterministic Go binding generation over libffi
//	├── marshal/         Call-boundary conversion with Owned/Borrowed scopes
//	├── linker/          Symbol manifest resolution against library exports
//	└── errors/          Structured error types for every pipeline phase
//
// # Quick Start
//
// Translate a header and write the generated package:
//
//	mod, err := ffibridge.Translate(ctx, translate.Request{
//	    HeaderPaths: []string{"device.h"},
//	    Platform:    typemap.LinuxAMD64,
//	    Package:     "device",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for name, data := range mod.Files {
//	    os.WriteFile(filepath.Join(dir, name), data, 0o644)
//	}
//
// The generated package binds each native symbol through libffi at load
// time and exposes plain Go functions; structs declared there carry the
// exact field offsets of the C side, which the mapper verifies per
// platform rather than assumes.
//
// # Value Crossing
//
// Scalars and structs convert automatically because their representation
// already matches. Go strings copy into NUL-terminated buffers owned by a
// marshal.Scope. Length-carrying values such as []byte never convert
// silently; they cross only through an explicit Scope conversion that pins
// or copies the backing storage. Incomplete types cross as opaque handles.
// On unix hosts marshal can also open a shared object and call mapped
// prototypes directly, binding arguments under the same rules without any
// generated code.
//
// # Thread Safety
//
// Translator, Mapped, and Resolution values are safe for concurrent use.
// A marshal.Scope belongs to one call and one goroutine; concurrency of
// the native library itself is out of the bridge's hands.
package ffibridge
