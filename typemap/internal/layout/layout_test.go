package layout

import (
	"errors"
	"strings"
	"testing"

	"github.com/wippyai/ffi-bridge/cdecl"
	liberrors "github.com/wippyai/ffi-bridge/errors"
)

// lp64 is a 64-bit little-endian data model with 8-byte longs and pointers,
// matching what linux-amd64 and darwin-arm64 share.
type lp64 struct{ ms bool }

func (lp64) Pointer() (uint32, uint32) { return 8, 8 }
func (t lp64) MSBitFields() bool       { return t.ms }

func (lp64) Primitive(p cdecl.Primitive) (uint32, uint32, bool) {
	switch p {
	case cdecl.Bool, cdecl.Char, cdecl.SChar, cdecl.UChar, cdecl.Int8, cdecl.Uint8:
		return 1, 1, true
	case cdecl.Short, cdecl.UShort, cdecl.Int16, cdecl.Uint16:
		return 2, 2, true
	case cdecl.Int, cdecl.UInt, cdecl.Int32, cdecl.Uint32, cdecl.WChar, cdecl.Float:
		return 4, 4, true
	case cdecl.Long, cdecl.ULong, cdecl.LongLong, cdecl.ULongLong,
		cdecl.Int64, cdecl.Uint64, cdecl.Size, cdecl.PtrDiff,
		cdecl.IntPtrT, cdecl.UIntPtrT, cdecl.Double:
		return 8, 8, true
	}
	return 0, 0, false
}

func testGraph(t *testing.T, decls ...cdecl.Decl) *cdecl.Graph {
	t.Helper()
	g := cdecl.NewGraph()
	for _, d := range decls {
		if err := g.Add(d); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	return g
}

func structDecl(tag string, fields ...cdecl.Field) cdecl.Decl {
	return cdecl.Decl{Kind: cdecl.DeclStruct, Struct: &cdecl.StructDecl{Tag: tag, Fields: fields}}
}

func unionDecl(tag string, fields ...cdecl.Field) cdecl.Decl {
	return cdecl.Decl{Kind: cdecl.DeclStruct, Struct: &cdecl.StructDecl{Tag: tag, Fields: fields, Union: true}}
}

func field(name string, typ cdecl.Type) cdecl.Field {
	return cdecl.Field{Name: name, Type: typ}
}

func bitField(name string, typ cdecl.Type, bits int) cdecl.Field {
	return cdecl.Field{Name: name, Type: typ, Bits: bits, BitField: true}
}

func TestTypeScalars(t *testing.T) {
	c := NewCalculator(cdecl.NewGraph(), lp64{})

	tests := []struct {
		name  string
		prim  cdecl.Primitive
		size  uint32
		align uint32
	}{
		{"bool", cdecl.Bool, 1, 1},
		{"char", cdecl.Char, 1, 1},
		{"short", cdecl.Short, 2, 2},
		{"int", cdecl.Int, 4, 4},
		{"long", cdecl.Long, 8, 8},
		{"long_long", cdecl.LongLong, 8, 8},
		{"float", cdecl.Float, 4, 4},
		{"double", cdecl.Double, 8, 8},
		{"size_t", cdecl.Size, 8, 8},
		{"uint64_t", cdecl.Uint64, 8, 8},
		{"int16_t", cdecl.Int16, 2, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			size, align, err := c.Type(cdecl.PrimType(tc.prim))
			if err != nil {
				t.Fatalf("Type failed: %v", err)
			}
			if size != tc.size {
				t.Errorf("size: got %d, want %d", size, tc.size)
			}
			if align != tc.align {
				t.Errorf("align: got %d, want %d", align, tc.align)
			}
		})
	}
}

func TestTypeUnmappable(t *testing.T) {
	c := NewCalculator(cdecl.NewGraph(), lp64{})

	t.Run("void", func(t *testing.T) {
		_, _, err := c.Type(cdecl.PrimType(cdecl.Void))
		if !errors.Is(err, &liberrors.Error{Phase: liberrors.PhaseMap, Kind: liberrors.KindUnmappableType}) {
			t.Errorf("got %v, want an unmappable type error", err)
		}
	})

	t.Run("long_double", func(t *testing.T) {
		_, _, err := c.Type(cdecl.PrimType(cdecl.LongDouble))
		if err == nil {
			t.Fatal("expected error")
		}
		var le *liberrors.Error
		if !errors.As(err, &le) || le.CType != "long double" {
			t.Errorf("error %v should carry C type long double", err)
		}
	})

	t.Run("long_double_pointer_is_fine", func(t *testing.T) {
		size, align, err := c.Type(cdecl.PointerTo(cdecl.PrimType(cdecl.LongDouble)))
		if err != nil || size != 8 || align != 8 {
			t.Errorf("got %d/%d (%v), want 8/8", size, align, err)
		}
	})
}

func TestTypePointersAndArrays(t *testing.T) {
	c := NewCalculator(cdecl.NewGraph(), lp64{})

	tests := []struct {
		name  string
		typ   cdecl.Type
		size  uint32
		align uint32
	}{
		{"char_ptr", cdecl.PointerTo(cdecl.PrimType(cdecl.Char)), 8, 8},
		{"ptr_ptr", cdecl.PointerTo(cdecl.PointerTo(cdecl.PrimType(cdecl.Int))), 8, 8},
		{"int_array", cdecl.ArrayOf(cdecl.PrimType(cdecl.Int), 4), 16, 4},
		{"matrix", cdecl.ArrayOf(cdecl.ArrayOf(cdecl.PrimType(cdecl.Int), 4), 3), 48, 4},
		{"zero_array", cdecl.ArrayOf(cdecl.PrimType(cdecl.Uint64), 0), 0, 8},
		{"func_ptr", cdecl.Type{Kind: cdecl.TypeFuncPtr, Fn: &cdecl.FuncType{Ret: cdecl.PrimType(cdecl.Void)}}, 8, 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			size, align, err := c.Type(tc.typ)
			if err != nil {
				t.Fatalf("Type failed: %v", err)
			}
			if size != tc.size || align != tc.align {
				t.Errorf("got %d/%d, want %d/%d", size, align, tc.size, tc.align)
			}
		})
	}
}

func TestStructOffsets(t *testing.T) {
	g := testGraph(t, structDecl("device",
		field("id", cdecl.PrimType(cdecl.Uint64)),
		field("name", cdecl.PointerTo(cdecl.PrimType(cdecl.Char))),
	))
	c := NewCalculator(g, lp64{})

	info, err := c.Struct("device")
	if err != nil {
		t.Fatalf("Struct failed: %v", err)
	}
	if info.Fields[0].Offset != 0 {
		t.Errorf("id offset: got %d, want 0", info.Fields[0].Offset)
	}
	if info.Fields[1].Offset != 8 {
		t.Errorf("name offset: got %d, want 8", info.Fields[1].Offset)
	}
	if info.Size != 16 {
		t.Errorf("size: got %d, want 16", info.Size)
	}
	if info.Align != 8 {
		t.Errorf("align: got %d, want 8", info.Align)
	}
}

func TestStructPadding(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		g := testGraph(t, structDecl("empty"))
		info, err := NewCalculator(g, lp64{}).Struct("empty")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Size != 0 || info.Align != 1 {
			t.Errorf("got %d/%d, want 0/1", info.Size, info.Align)
		}
	})

	t.Run("mixed_alignment", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			field("a", cdecl.PrimType(cdecl.Char)),
			field("b", cdecl.PrimType(cdecl.Int)),
			field("c", cdecl.PrimType(cdecl.Char)),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		wantOffs := []uint32{0, 4, 8}
		for i, want := range wantOffs {
			if info.Fields[i].Offset != want {
				t.Errorf("field %d offset: got %d, want %d", i, info.Fields[i].Offset, want)
			}
		}
		if info.Size != 12 || info.Align != 4 {
			t.Errorf("got %d/%d, want 12/4", info.Size, info.Align)
		}
	})

	t.Run("trailing_padding", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			field("a", cdecl.PrimType(cdecl.LongLong)),
			field("b", cdecl.PrimType(cdecl.Char)),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Size != 16 || info.Align != 8 {
			t.Errorf("got %d/%d, want 16/8", info.Size, info.Align)
		}
	})
}

func TestStructNested(t *testing.T) {
	g := testGraph(t,
		structDecl("inner",
			field("a", cdecl.PrimType(cdecl.Int)),
			field("b", cdecl.PrimType(cdecl.Long)),
		),
		structDecl("outer",
			field("in", cdecl.StructRef("inner")),
			field("flag", cdecl.PrimType(cdecl.Char)),
		),
	)
	c := NewCalculator(g, lp64{})

	info, err := c.Struct("outer")
	if err != nil {
		t.Fatalf("Struct failed: %v", err)
	}
	if info.Fields[0].Offset != 0 || info.Fields[0].Size != 16 {
		t.Errorf("inner: got offset %d size %d, want 0 and 16", info.Fields[0].Offset, info.Fields[0].Size)
	}
	if info.Fields[1].Offset != 16 {
		t.Errorf("flag offset: got %d, want 16", info.Fields[1].Offset)
	}
	if info.Size != 24 || info.Align != 8 {
		t.Errorf("got %d/%d, want 24/8", info.Size, info.Align)
	}
}

func TestUnionLayout(t *testing.T) {
	tests := []struct {
		name  string
		decl  cdecl.Decl
		size  uint32
		align uint32
	}{
		{
			"int_and_bytes",
			unionDecl("u",
				field("i", cdecl.PrimType(cdecl.Int)),
				field("c", cdecl.ArrayOf(cdecl.PrimType(cdecl.Char), 6)),
			),
			8, 4,
		},
		{
			"double_and_int",
			unionDecl("u",
				field("d", cdecl.PrimType(cdecl.Double)),
				field("i", cdecl.PrimType(cdecl.Int)),
			),
			8, 8,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := testGraph(t, tc.decl)
			info, err := NewCalculator(g, lp64{}).Struct("u")
			if err != nil {
				t.Fatalf("Struct failed: %v", err)
			}
			if info.Size != tc.size || info.Align != tc.align {
				t.Errorf("got %d/%d, want %d/%d", info.Size, info.Align, tc.size, tc.align)
			}
			for i, f := range info.Fields {
				if f.Offset != 0 {
					t.Errorf("member %d offset: got %d, want 0", i, f.Offset)
				}
			}
		})
	}
}

func TestBitFieldsSysV(t *testing.T) {
	uns := cdecl.PrimType(cdecl.UInt)

	t.Run("packed_nibbles", func(t *testing.T) {
		g := testGraph(t, structDecl("flags",
			bitField("lo", uns, 4),
			bitField("hi", uns, 4),
			field("whole", uns),
		))
		info, err := NewCalculator(g, lp64{}).Struct("flags")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		lo, hi, whole := info.Fields[0], info.Fields[1], info.Fields[2]
		if lo.Offset != 0 || lo.BitOff != 0 {
			t.Errorf("lo: got %d+%d, want unit 0 bit 0", lo.Offset, lo.BitOff)
		}
		if hi.Offset != 0 || hi.BitOff != 4 {
			t.Errorf("hi: got %d+%d, want unit 0 bit 4", hi.Offset, hi.BitOff)
		}
		if whole.Offset != 4 {
			t.Errorf("whole offset: got %d, want 4", whole.Offset)
		}
		if info.Size != 8 || info.Align != 4 {
			t.Errorf("got %d/%d, want 8/4", info.Size, info.Align)
		}
	})

	t.Run("zero_width_splits_units", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", uns, 4),
			bitField("", uns, 0),
			bitField("b", uns, 4),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Fields[0].Offset != 0 || info.Fields[0].BitOff != 0 {
			t.Errorf("a: got %d+%d, want unit 0 bit 0", info.Fields[0].Offset, info.Fields[0].BitOff)
		}
		if info.Fields[2].Offset != 4 || info.Fields[2].BitOff != 0 {
			t.Errorf("b: got %d+%d, want unit 4 bit 0", info.Fields[2].Offset, info.Fields[2].BitOff)
		}
		if info.Size != 8 {
			t.Errorf("size: got %d, want 8", info.Size)
		}
	})

	t.Run("smaller_type_shares_unit", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", cdecl.PrimType(cdecl.Char), 4),
			bitField("b", cdecl.PrimType(cdecl.Int), 20),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Fields[1].Offset != 0 || info.Fields[1].BitOff != 4 {
			t.Errorf("b: got %d+%d, want unit 0 bit 4", info.Fields[1].Offset, info.Fields[1].BitOff)
		}
		if info.Size != 4 || info.Align != 4 {
			t.Errorf("got %d/%d, want 4/4", info.Size, info.Align)
		}
	})

	t.Run("unit_boundary_advances", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", uns, 20),
			bitField("b", uns, 20),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Fields[1].Offset != 4 || info.Fields[1].BitOff != 0 {
			t.Errorf("b: got %d+%d, want unit 4 bit 0", info.Fields[1].Offset, info.Fields[1].BitOff)
		}
		if info.Size != 8 {
			t.Errorf("size: got %d, want 8", info.Size)
		}
	})

	t.Run("unnamed_does_not_align", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", cdecl.PrimType(cdecl.Char), 4),
			bitField("", cdecl.PrimType(cdecl.Int), 20),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Size != 3 || info.Align != 1 {
			t.Errorf("got %d/%d, want 3/1", info.Size, info.Align)
		}
	})

	t.Run("zero_width_after_plain_field", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			field("c", cdecl.PrimType(cdecl.Char)),
			bitField("", cdecl.PrimType(cdecl.Long), 0),
			field("d", cdecl.PrimType(cdecl.Char)),
		))
		info, err := NewCalculator(g, lp64{}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Fields[2].Offset != 8 {
			t.Errorf("d offset: got %d, want 8", info.Fields[2].Offset)
		}
		if info.Size != 9 || info.Align != 1 {
			t.Errorf("got %d/%d, want 9/1", info.Size, info.Align)
		}
	})
}

func TestBitFieldsMS(t *testing.T) {
	t.Run("type_change_opens_unit", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", cdecl.PrimType(cdecl.Char), 4),
			bitField("b", cdecl.PrimType(cdecl.Int), 20),
		))
		info, err := NewCalculator(g, lp64{ms: true}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Fields[0].Offset != 0 || info.Fields[0].BitOff != 0 {
			t.Errorf("a: got %d+%d, want unit 0 bit 0", info.Fields[0].Offset, info.Fields[0].BitOff)
		}
		if info.Fields[1].Offset != 4 || info.Fields[1].BitOff != 0 {
			t.Errorf("b: got %d+%d, want unit 4 bit 0", info.Fields[1].Offset, info.Fields[1].BitOff)
		}
		if info.Size != 8 || info.Align != 4 {
			t.Errorf("got %d/%d, want 8/4", info.Size, info.Align)
		}
	})

	t.Run("same_type_shares", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", cdecl.PrimType(cdecl.UInt), 4),
			bitField("b", cdecl.PrimType(cdecl.UInt), 4),
		))
		info, err := NewCalculator(g, lp64{ms: true}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Fields[1].Offset != 0 || info.Fields[1].BitOff != 4 {
			t.Errorf("b: got %d+%d, want unit 0 bit 4", info.Fields[1].Offset, info.Fields[1].BitOff)
		}
		if info.Size != 4 {
			t.Errorf("size: got %d, want 4", info.Size)
		}
	})

	t.Run("unnamed_still_aligns", func(t *testing.T) {
		g := testGraph(t, structDecl("s",
			bitField("a", cdecl.PrimType(cdecl.Char), 4),
			bitField("", cdecl.PrimType(cdecl.Int), 20),
		))
		info, err := NewCalculator(g, lp64{ms: true}).Struct("s")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Size != 8 || info.Align != 4 {
			t.Errorf("got %d/%d, want 8/4", info.Size, info.Align)
		}
	})
}

func TestIncompleteByValue(t *testing.T) {
	g := testGraph(t, cdecl.Decl{
		Kind:   cdecl.DeclStruct,
		Struct: &cdecl.StructDecl{Tag: "opaque", Incomplete: true},
	})
	c := NewCalculator(g, lp64{})

	_, err := c.Struct("opaque")
	if err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Errorf("got %v, want incomplete type error", err)
	}

	size, align, err := c.Type(cdecl.PointerTo(cdecl.StructRef("opaque")))
	if err != nil || size != 8 || align != 8 {
		t.Errorf("pointer to incomplete: got %d/%d (%v), want 8/8", size, align, err)
	}
}

func TestSelfReferential(t *testing.T) {
	t.Run("by_pointer", func(t *testing.T) {
		g := testGraph(t, structDecl("node",
			field("value", cdecl.PrimType(cdecl.Int)),
			field("next", cdecl.PointerTo(cdecl.StructRef("node"))),
		))
		info, err := NewCalculator(g, lp64{}).Struct("node")
		if err != nil {
			t.Fatalf("Struct failed: %v", err)
		}
		if info.Size != 16 || info.Fields[1].Offset != 8 {
			t.Errorf("got size %d next@%d, want 16 and 8", info.Size, info.Fields[1].Offset)
		}
	})

	t.Run("by_value", func(t *testing.T) {
		g := testGraph(t, structDecl("bad",
			field("inner", cdecl.StructRef("bad")),
		))
		_, err := NewCalculator(g, lp64{}).Struct("bad")
		if err == nil || !strings.Contains(err.Error(), "contains itself") {
			t.Errorf("got %v, want self-containment error", err)
		}
	})
}

func TestBitFieldErrors(t *testing.T) {
	t.Run("too_wide", func(t *testing.T) {
		g := testGraph(t, structDecl("s", bitField("c", cdecl.PrimType(cdecl.Char), 20)))
		_, err := NewCalculator(g, lp64{}).Struct("s")
		if err == nil || !strings.Contains(err.Error(), "exceeds") {
			t.Errorf("got %v, want width error", err)
		}
	})

	t.Run("non_integer", func(t *testing.T) {
		g := testGraph(t, structDecl("s", bitField("f", cdecl.PrimType(cdecl.Float), 3)))
		_, err := NewCalculator(g, lp64{}).Struct("s")
		if err == nil || !strings.Contains(err.Error(), "non-integer") {
			t.Errorf("got %v, want non-integer error", err)
		}
	})
}

func TestTypeReferences(t *testing.T) {
	g := testGraph(t,
		cdecl.Decl{Kind: cdecl.DeclEnum, Enum: &cdecl.EnumDecl{
			Tag:         "color",
			Enumerators: []cdecl.Enumerator{{Name: "RED", Value: 0}},
		}},
		cdecl.Decl{Kind: cdecl.DeclTypedef, Typedef: &cdecl.TypedefDecl{
			Name: "myint", Type: cdecl.PrimType(cdecl.Int),
		}},
		cdecl.Decl{Kind: cdecl.DeclTypedef, Typedef: &cdecl.TypedefDecl{
			Name: "depth", Type: cdecl.TypedefRef("myint"),
		}},
	)
	c := NewCalculator(g, lp64{})

	t.Run("enum", func(t *testing.T) {
		size, align, err := c.Type(cdecl.EnumRef("color"))
		if err != nil || size != 4 || align != 4 {
			t.Errorf("got %d/%d (%v), want 4/4", size, align, err)
		}
	})

	t.Run("typedef_chain", func(t *testing.T) {
		size, align, err := c.Type(cdecl.TypedefRef("depth"))
		if err != nil || size != 4 || align != 4 {
			t.Errorf("got %d/%d (%v), want 4/4", size, align, err)
		}
	})

	t.Run("missing_typedef", func(t *testing.T) {
		_, _, err := c.Type(cdecl.TypedefRef("ghost"))
		if !errors.Is(err, &liberrors.Error{Phase: liberrors.PhaseMap, Kind: liberrors.KindNotFound}) {
			t.Errorf("got %v, want a not-found error", err)
		}
	})
}

func TestCaching(t *testing.T) {
	g := testGraph(t, structDecl("s",
		field("x", cdecl.PrimType(cdecl.Int)),
	))
	c := NewCalculator(g, lp64{})

	info1, err := c.Struct("s")
	if err != nil {
		t.Fatalf("Struct failed: %v", err)
	}
	info2, err := c.Struct("s")
	if err != nil {
		t.Fatalf("Struct failed: %v", err)
	}
	if info1.Size != info2.Size || len(info1.Fields) != len(info2.Fields) {
		t.Error("cached results should be identical")
	}
}
