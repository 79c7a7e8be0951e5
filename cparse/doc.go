// Package cparse parses C header files into a declaration graph.
//
// The parser recognizes the declaration surface of a C API: primitive
// scalars including the <stdint.h> spellings, pointers, fixed-size arrays,
// struct/union/enum definitions (with bit-fields and anonymous members),
// typedef aliases, function prototypes with calling-convention tokens, and
// object-like macro constants. It is a pure transform: the same headers,
// include paths, and defines always yield the same graph.
//
// # Directive Subset
//
// Headers are consumed without an external preprocessor, so the include-
// guard reality is handled directly:
//
//	#include "..." / <...>      resolved against IncludePaths, cycle-checked
//	#define / #undef            object-like macros; bodies kept for constants
//	#ifdef / #ifndef / #else    conditionals over defined names
//	#endif / #pragma once       guard forms
//
// Standard library headers (<stdint.h>, <stddef.h>, ...) are satisfied
// intrinsically. Anything beyond the subset - #if expressions, function-like
// macro use inside declarations, #pragma pack - fails with a structured
// parse error naming the header and line rather than guessing.
//
// # Usage
//
//	graph, err := cparse.Parse(cparse.Options{
//		HeaderPaths:  []string{"vector.h"},
//		IncludePaths: []string{"/usr/include/vec"},
//		Defines:      map[string]string{"VEC_API": ""},
//	})
//
// The graph preserves textual declaration order; see package cdecl for its
// shape.
package cparse
