// Package cdecl defines the declaration graph produced by header parsing.
//
// The graph is the in-memory form of a parsed C API surface: struct, union
// and enum definitions, typedef aliases, function prototypes, and object-like
// macro constants. It preserves C-level spellings (a `long` stays a `long`)
// so that later type mapping can apply a per-platform data model; nothing in
// this package knows about sizes or alignment.
//
// # Types
//
// A C type expression is a Type value discriminated by Kind:
//
//	cdecl.Type{Kind: cdecl.TypePrim, Prim: cdecl.Int}            // int
//	cdecl.Type{Kind: cdecl.TypePointer, Elem: &charType}         // char *
//	cdecl.Type{Kind: cdecl.TypeArray, Elem: &f32Type, Len: 4}    // float [4]
//	cdecl.Type{Kind: cdecl.TypeStructRef, Tag: "point"}          // struct point
//
// Type.String renders the C spelling for diagnostics.
//
// # Declarations
//
// Decl is a tagged union over the five declaration forms:
//
//	decl.Kind == cdecl.DeclStruct   → decl.Struct
//	decl.Kind == cdecl.DeclEnum     → decl.Enum
//	decl.Kind == cdecl.DeclTypedef  → decl.Typedef
//	decl.Kind == cdecl.DeclFunc     → decl.Func
//	decl.Kind == cdecl.DeclConst    → decl.Const
//
// # Graph
//
// Graph holds declarations in textual order of first appearance, with
// lookup across C's two identifier namespaces (tags vs ordinary names).
// Field order inside a struct is load-bearing and is never reordered.
package cdecl
