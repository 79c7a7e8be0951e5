// Package layout computes C object layout for a target data model.
//
// Size, alignment, and field offsets follow the rules every supported target
// shares: fields at their natural alignment in declaration order, trailing
// padding to the strictest member alignment, union size as the largest member
// padded likewise, and bit-fields packed into storage units of their declared
// type. The two allocation schemes in the wild differ only in how bit-field
// runs open and close; Target selects between the System V scheme and the
// MSVC scheme.
//
// # Usage
//
//	calc := layout.NewCalculator(graph, target)
//	info, err := calc.Struct("device")
//	// info.Size, info.Align, info.Fields available
//
// This package is internal to typemap.
package layout
