package cdecl

// Location points at a declaration's first appearance in source.
type Location struct {
	Header string
	Line   int
}

// CallConv identifies the calling convention a prototype was declared with.
type CallConv uint8

const (
	ConvCdecl CallConv = iota // default, and the only convention calls go through
	ConvStdcall
	ConvFastcall
)

var callConvNames = [...]string{
	ConvCdecl:    "cdecl",
	ConvStdcall:  "stdcall",
	ConvFastcall: "fastcall",
}

func (c CallConv) String() string {
	if int(c) < len(callConvNames) {
		return callConvNames[c]
	}
	return "unknown"
}

// DeclKind discriminates the variants of Decl.
type DeclKind uint8

const (
	DeclStruct DeclKind = iota // also unions; see StructDecl.Union
	DeclEnum
	DeclTypedef
	DeclFunc
	DeclConst
)

var declKindNames = [...]string{
	DeclStruct:  "struct",
	DeclEnum:    "enum",
	DeclTypedef: "typedef",
	DeclFunc:    "function",
	DeclConst:   "constant",
}

func (k DeclKind) String() string {
	if int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return "unknown"
}

// Decl represents any top-level declaration parsed from a header.
type Decl struct {
	Struct  *StructDecl
	Enum    *EnumDecl
	Typedef *TypedefDecl
	Func    *FuncDecl
	Const   *ConstDecl
	Kind    DeclKind
}

// Name returns the declared name regardless of variant.
func (d Decl) Name() string {
	switch d.Kind {
	case DeclStruct:
		return d.Struct.Tag
	case DeclEnum:
		return d.Enum.Tag
	case DeclTypedef:
		return d.Typedef.Name
	case DeclFunc:
		return d.Func.Name
	case DeclConst:
		return d.Const.Name
	}
	return ""
}

// Loc returns the declaration's source location.
func (d Decl) Loc() Location {
	switch d.Kind {
	case DeclStruct:
		return d.Struct.Loc
	case DeclEnum:
		return d.Enum.Loc
	case DeclTypedef:
		return d.Typedef.Loc
	case DeclFunc:
		return d.Func.Loc
	case DeclConst:
		return d.Const.Loc
	}
	return Location{}
}

// Field is one member of a struct or union, in declaration order.
// BitField distinguishes `int f : 0;` and unnamed padding fields from plain
// members; Bits alone cannot, because zero-width bit-fields are legal.
type Field struct {
	Name     string
	Type     Type
	Bits     int
	BitField bool
}

// StructDecl is a struct or union definition. A declaration seen only as
// `struct foo;` or behind a pointer stays Incomplete; fields arrive if a
// definition follows.
type StructDecl struct {
	Tag        string
	Fields     []Field
	Loc        Location
	Union      bool
	Incomplete bool
}

// Enumerator is one named constant inside an enum.
type Enumerator struct {
	Name  string
	Value int64
}

// EnumDecl is an enum definition.
type EnumDecl struct {
	Tag         string
	Enumerators []Enumerator
	Loc         Location
}

// TypedefDecl is a typedef alias.
type TypedefDecl struct {
	Name string
	Type Type
	Loc  Location
}

// FuncDecl is a function prototype.
type FuncDecl struct {
	Name string
	Sig  FuncType
	Conv CallConv
	Loc  Location
}

// ConstKind discriminates the value forms a macro constant can take.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstChar
)

// ConstDecl is an object-like macro reduced to a literal constant.
type ConstDecl struct {
	Name  string
	Kind  ConstKind
	Int   int64
	Float float64
	Str   string
	Loc   Location
}
