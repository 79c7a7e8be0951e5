package emit

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/typemap"
)

// typesFile renders struct, enum, alias and constant declarations.
func (g *generator) typesFile() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "package %s\n\n", g.pkg)

	if g.needsDescriptors() {
		fmt.Fprintf(&b, "import \"github.com/jupiterrider/ffi\"\n\n")
	}

	for _, si := range g.m.Structs {
		g.structType(&b, si)
	}
	for _, ei := range g.m.Enums {
		g.enumType(&b, ei)
	}
	for _, ti := range g.m.Typedefs {
		g.aliasType(&b, ti)
	}
	g.constBlock(&b)

	return b.Bytes()
}

// needsDescriptors reports whether any concrete struct emits an ffi.NewType
// descriptor, which is the only ffi use in types.go.
func (g *generator) needsDescriptors() bool {
	for _, si := range g.m.Structs {
		if !si.Opaque {
			return true
		}
	}
	return false
}

func (g *generator) structType(b *bytes.Buffer, si *typemap.StructInfo) {
	if si.Opaque {
		fmt.Fprintf(b, "type %s uintptr\n\n", si.GoName)
		return
	}

	fmt.Fprintf(b, "type %s struct {\n", si.GoName)
	for _, f := range si.GoFields {
		fmt.Fprintf(b, "\t%s %s\n", f.Name, f.Go)
	}
	fmt.Fprintf(b, "}\n\n")

	for _, f := range si.GoFields {
		for _, acc := range f.Bits {
			bitAccessors(b, si.GoName, f, acc)
		}
	}

	fmt.Fprintf(b, "var FFIType%s = ffi.NewType(\n", si.GoName)
	if si.Union {
		unionElems(b, si)
	} else {
		for _, f := range si.GoFields {
			for n := uint32(0); n < f.FFICount; n++ {
				fmt.Fprintf(b, "\t%s,\n", f.FFI)
			}
		}
	}
	fmt.Fprintf(b, ")\n\n")

	fmt.Fprintf(b, "// NewUninitialized%s returns zeroed storage for a %s. Assign every field\n", si.GoName, si.GoName)
	fmt.Fprintf(b, "// before the value crosses to the native side; fields hold Go zero values,\n")
	fmt.Fprintf(b, "// never native-initialized data.\n")
	fmt.Fprintf(b, "func NewUninitialized%s() *%s {\n\treturn new(%s)\n}\n\n", si.GoName, si.GoName, si.GoName)
}

// unionElems renders a union descriptor: member shapes are erased, so one
// element of the union's alignment plus byte filler reproduces its size
// and alignment.
func unionElems(b *bytes.Buffer, si *typemap.StructInfo) {
	fmt.Fprintf(b, "\t%s,\n", uintDescriptor(si.Layout.Align))
	for n := si.Layout.Align; n < si.Layout.Size; n++ {
		fmt.Fprintf(b, "\t&ffi.TypeUint8,\n")
	}
}

func uintDescriptor(size uint32) string {
	switch size {
	case 2:
		return "&ffi.TypeUint16"
	case 4:
		return "&ffi.TypeUint32"
	case 8:
		return "&ffi.TypeUint64"
	default:
		return "&ffi.TypeUint8"
	}
}

// bitAccessors renders the getter and setter for one bit-field backed by a
// storage unit. Signed fields narrower than their Go type sign-extend with
// a shift pair.
func bitAccessors(b *bytes.Buffer, recv string, unit typemap.GoField, acc typemap.BitAccessor) {
	mask := uint64(1)<<acc.Width - 1
	bits := goTypeBits(acc.Go)

	fmt.Fprintf(b, "// %s reads the %d-bit field stored in %s.\n", acc.Name, acc.Width, unit.Name)
	fmt.Fprintf(b, "func (s *%s) %s() %s {\n", recv, acc.Name, acc.Go)
	fmt.Fprintf(b, "\tv := s.%s >> %d & 0x%X\n", unit.Name, acc.Shift, mask)
	if acc.Signed && bits > acc.Width {
		sh := bits - acc.Width
		fmt.Fprintf(b, "\treturn %s(v) << %d >> %d\n", acc.Go, sh, sh)
	} else {
		fmt.Fprintf(b, "\treturn %s(v)\n", acc.Go)
	}
	fmt.Fprintf(b, "}\n\n")

	fmt.Fprintf(b, "// Set%s stores the low %d bits of v in %s.\n", acc.Name, acc.Width, unit.Name)
	fmt.Fprintf(b, "func (s *%s) Set%s(v %s) {\n", recv, acc.Name, acc.Go)
	fmt.Fprintf(b, "\ts.%s = s.%s&^(0x%X<<%d) | %s(v)&0x%X<<%d\n",
		unit.Name, unit.Name, mask, acc.Shift, unit.Go, mask, acc.Shift)
	fmt.Fprintf(b, "}\n\n")
}

func goTypeBits(name string) uint32 {
	switch name {
	case "int8", "uint8":
		return 8
	case "int16", "uint16":
		return 16
	case "int64", "uint64":
		return 64
	default:
		return 32
	}
}

func (g *generator) enumType(b *bytes.Buffer, ei *typemap.EnumInfo) {
	fmt.Fprintf(b, "type %s int32\n\n", ei.GoName)
	if len(ei.Members) == 0 {
		return
	}
	fmt.Fprintf(b, "const (\n")
	if sequentialFromZero(ei.Members) {
		for i, m := range ei.Members {
			if i == 0 {
				fmt.Fprintf(b, "\t%s %s = iota\n", m.GoName, ei.GoName)
			} else {
				fmt.Fprintf(b, "\t%s\n", m.GoName)
			}
		}
	} else {
		for _, m := range ei.Members {
			fmt.Fprintf(b, "\t%s %s = %d\n", m.GoName, ei.GoName, m.Value)
		}
	}
	fmt.Fprintf(b, ")\n\n")
}

func sequentialFromZero(members []typemap.EnumMember) bool {
	for i, m := range members {
		if m.Value != int64(i) {
			return false
		}
	}
	return len(members) > 0
}

func (g *generator) aliasType(b *bytes.Buffer, ti *typemap.TypedefInfo) {
	if !ti.EmitAlias {
		return
	}
	fmt.Fprintf(b, "type %s = %s\n\n", ti.GoName, g.aliasRHS(ti))
}

// aliasRHS picks the alias target. Aliases of incomplete aggregates cannot
// spell the underlying type and refer to the generated handle instead.
func (g *generator) aliasRHS(ti *typemap.TypedefInfo) string {
	info, err := g.m.Type(ti.Decl.Type)
	if err != nil {
		return ti.Info.Go
	}
	return info.Go
}

func (g *generator) constBlock(b *bytes.Buffer) {
	if len(g.m.Consts) == 0 {
		return
	}
	fmt.Fprintf(b, "const (\n")
	for _, ci := range g.m.Consts {
		fmt.Fprintf(b, "\t%s = %s\n", ci.GoName, constValue(ci.Decl))
	}
	fmt.Fprintf(b, ")\n")
}

func constValue(cd *cdecl.ConstDecl) string {
	switch cd.Kind {
	case cdecl.ConstFloat:
		return strconv.FormatFloat(cd.Float, 'g', -1, 64)
	case cdecl.ConstString:
		return strconv.Quote(cd.Str)
	case cdecl.ConstChar:
		return strconv.QuoteRune(rune(cd.Int))
	default:
		return strconv.FormatInt(cd.Int, 10)
	}
}
