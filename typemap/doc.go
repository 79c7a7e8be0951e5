// Package typemap assigns host representations to parsed C declarations.
//
// Map pairs a declaration graph with one target platform and produces, for
// every type, a Go spelling, a libffi descriptor, a size, an alignment, and
// a marshaling classification. Struct and union layout comes from the
// internal layout calculator; the platform table supplies every data-model
// fact (pointer width, long width, char signedness, bit-field scheme), so
// adding a target means adding a table entry.
//
// The size and alignment of every mapped declaration equal the native ones
// by construction, and Map fails with an unmappable-type error rather than
// emit a layout it cannot guarantee.
package typemap
