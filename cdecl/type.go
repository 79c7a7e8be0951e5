package cdecl

import (
	"fmt"
	"strings"
)

// TypeKind discriminates the variants of Type.
type TypeKind uint8

const (
	TypePrim TypeKind = iota
	TypePointer
	TypeArray
	TypeStructRef
	TypeUnionRef
	TypeEnumRef
	TypeTypedefRef
	TypeFuncPtr
)

var typeKindNames = [...]string{
	TypePrim:       "prim",
	TypePointer:    "pointer",
	TypeArray:      "array",
	TypeStructRef:  "struct",
	TypeUnionRef:   "union",
	TypeEnumRef:    "enum",
	TypeTypedefRef: "typedef",
	TypeFuncPtr:    "funcptr",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// Type represents a C type expression.
// Which fields are meaningful depends on Kind:
//
//	TypePrim       → Prim
//	TypePointer    → Elem (pointee)
//	TypeArray      → Elem (element), Len
//	TypeStructRef  → Tag (struct tag or synthesized name)
//	TypeUnionRef   → Tag
//	TypeEnumRef    → Tag
//	TypeTypedefRef → Tag (the typedef name)
//	TypeFuncPtr    → Fn
type Type struct {
	Elem  *Type
	Fn    *FuncType
	Tag   string
	Len   int
	Prim  Primitive
	Kind  TypeKind
	Const bool
}

// FuncType represents a function signature, used for prototypes and for
// function pointer types.
type FuncType struct {
	Ret      Type
	Params   []Param
	Variadic bool
}

// Param is a single function parameter. Name may be empty; prototypes
// without parameter names are legal C.
type Param struct {
	Name string
	Type Type
}

// PrimType returns a Type wrapping the primitive p.
func PrimType(p Primitive) Type {
	return Type{Kind: TypePrim, Prim: p}
}

// PointerTo returns a pointer type with pointee elem.
func PointerTo(elem Type) Type {
	return Type{Kind: TypePointer, Elem: &elem}
}

// ArrayOf returns a fixed-size array type.
func ArrayOf(elem Type, n int) Type {
	return Type{Kind: TypeArray, Elem: &elem, Len: n}
}

// StructRef returns a reference to the struct declared under tag.
func StructRef(tag string) Type {
	return Type{Kind: TypeStructRef, Tag: tag}
}

// UnionRef returns a reference to the union declared under tag.
func UnionRef(tag string) Type {
	return Type{Kind: TypeUnionRef, Tag: tag}
}

// EnumRef returns a reference to the enum declared under tag.
func EnumRef(tag string) Type {
	return Type{Kind: TypeEnumRef, Tag: tag}
}

// TypedefRef returns a reference to a typedef by name.
func TypedefRef(name string) Type {
	return Type{Kind: TypeTypedefRef, Tag: name}
}

// IsVoid reports whether t is the plain void type (not void *).
func (t Type) IsVoid() bool {
	return t.Kind == TypePrim && t.Prim == Void
}

// IsCharPointer reports whether t is a pointer whose pointee is a plain,
// signed, or unsigned char. These are the candidates for string bridging.
func (t Type) IsCharPointer() bool {
	if t.Kind != TypePointer || t.Elem == nil {
		return false
	}
	e := *t.Elem
	return e.Kind == TypePrim && (e.Prim == Char || e.Prim == SChar || e.Prim == UChar)
}

// String renders the C spelling of the type for diagnostics.
func (t Type) String() string {
	var b strings.Builder
	t.render(&b)
	return b.String()
}

func (t Type) render(b *strings.Builder) {
	if t.Const {
		b.WriteString("const ")
	}
	switch t.Kind {
	case TypePrim:
		b.WriteString(t.Prim.String())
	case TypePointer:
		if t.Elem != nil {
			t.Elem.render(b)
		}
		b.WriteString(" *")
	case TypeArray:
		if t.Elem != nil {
			t.Elem.render(b)
		}
		fmt.Fprintf(b, "[%d]", t.Len)
	case TypeStructRef:
		b.WriteString("struct ")
		b.WriteString(t.Tag)
	case TypeUnionRef:
		b.WriteString("union ")
		b.WriteString(t.Tag)
	case TypeEnumRef:
		b.WriteString("enum ")
		b.WriteString(t.Tag)
	case TypeTypedefRef:
		b.WriteString(t.Tag)
	case TypeFuncPtr:
		if t.Fn != nil {
			t.Fn.Ret.render(b)
			b.WriteString(" (*)(")
			for i, p := range t.Fn.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				p.Type.render(b)
			}
			if t.Fn.Variadic {
				if len(t.Fn.Params) > 0 {
					b.WriteString(", ")
				}
				b.WriteString("...")
			}
			b.WriteByte(')')
		}
	}
}

// Equal reports structural equality of two type expressions.
// Const qualification is ignored; it never changes layout or calling
// convention, only the contract text.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypePrim:
		return t.Prim == o.Prim
	case TypePointer:
		if (t.Elem == nil) != (o.Elem == nil) {
			return false
		}
		return t.Elem == nil || t.Elem.Equal(*o.Elem)
	case TypeArray:
		if t.Len != o.Len {
			return false
		}
		if (t.Elem == nil) != (o.Elem == nil) {
			return false
		}
		return t.Elem == nil || t.Elem.Equal(*o.Elem)
	case TypeStructRef, TypeUnionRef, TypeEnumRef, TypeTypedefRef:
		return t.Tag == o.Tag
	case TypeFuncPtr:
		if (t.Fn == nil) != (o.Fn == nil) {
			return false
		}
		return t.Fn == nil || t.Fn.Equal(o.Fn)
	}
	return false
}

// Equal reports structural equality of two signatures. Parameter names are
// ignored; C prototypes may repeat with different or missing names.
func (f *FuncType) Equal(o *FuncType) bool {
	if f.Variadic != o.Variadic || len(f.Params) != len(o.Params) {
		return false
	}
	if !f.Ret.Equal(o.Ret) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Type.Equal(o.Params[i].Type) {
			return false
		}
	}
	return true
}
