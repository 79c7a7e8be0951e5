package cdecl

// Primitive identifies a C scalar type by its source spelling, not its width.
// Widths are a property of the target data model and are assigned later.
type Primitive uint8

const (
	Void Primitive = iota
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
	Size
	PtrDiff
	IntPtrT
	UIntPtrT
	WChar
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
)

var primNames = [...]string{
	Void:       "void",
	Bool:       "_Bool",
	Char:       "char",
	SChar:      "signed char",
	UChar:      "unsigned char",
	Short:      "short",
	UShort:     "unsigned short",
	Int:        "int",
	UInt:       "unsigned int",
	Long:       "long",
	ULong:      "unsigned long",
	LongLong:   "long long",
	ULongLong:  "unsigned long long",
	Float:      "float",
	Double:     "double",
	LongDouble: "long double",
	Size:       "size_t",
	PtrDiff:    "ptrdiff_t",
	IntPtrT:    "intptr_t",
	UIntPtrT:   "uintptr_t",
	WChar:      "wchar_t",
	Int8:       "int8_t",
	Uint8:      "uint8_t",
	Int16:      "int16_t",
	Uint16:     "uint16_t",
	Int32:      "int32_t",
	Uint32:     "uint32_t",
	Int64:      "int64_t",
	Uint64:     "uint64_t",
}

func (p Primitive) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// IsInteger reports whether p is an integer type (char counts, _Bool counts).
func (p Primitive) IsInteger() bool {
	switch p {
	case Void, Float, Double, LongDouble:
		return false
	default:
		return true
	}
}

// IsFloat reports whether p is a floating-point type.
func (p Primitive) IsFloat() bool {
	return p == Float || p == Double || p == LongDouble
}

// IsFixedWidth reports whether p is a <stdint.h> exact-width type.
func (p Primitive) IsFixedWidth() bool {
	return p >= Int8 && p <= Uint64
}

// IsUnsigned reports whether p is unconditionally unsigned. Plain char and
// wchar_t return false here; their signedness belongs to the data model.
func (p Primitive) IsUnsigned() bool {
	switch p {
	case Bool, UChar, UShort, UInt, ULong, ULongLong, Size, UIntPtrT, Uint8, Uint16, Uint32, Uint64:
		return true
	default:
		return false
	}
}
