package layout

import (
	"fmt"
	"sync"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/errors"
)

// Target supplies the data-model facts layout depends on. Everything else is
// common C rules shared by all supported targets.
type Target interface {
	// Primitive returns the size and alignment of a scalar, or ok=false when
	// the data model has no representation for it.
	Primitive(p cdecl.Primitive) (size, align uint32, ok bool)
	// Pointer returns the size and alignment of any pointer.
	Pointer() (size, align uint32)
	// MSBitFields selects the MSVC bit-field allocation scheme.
	MSBitFields() bool
}

// Field records where one declared member landed. Entries parallel the
// declaration's field list one to one, unnamed bit-fields included. For a
// bit-field, Offset and Size describe the storage unit of its declared type
// and BitOff counts from the unit's least significant bit; all targets here
// are little-endian.
type Field struct {
	Name     string
	Offset   uint32
	Size     uint32
	Align    uint32
	BitOff   uint32
	Bits     uint32
	BitField bool
}

// Info is the computed layout of a struct or union.
type Info struct {
	Size   uint32
	Align  uint32
	Fields []Field
}

// Calculator computes sizes, alignments, and member offsets against one
// declaration graph and one target. Results are cached per tag; a calculator
// is safe for concurrent use.
type Calculator struct {
	mu     sync.Mutex
	graph  *cdecl.Graph
	target Target
	cache  map[string]Info
	active map[string]bool
}

// NewCalculator returns a calculator over g for the given target.
func NewCalculator(g *cdecl.Graph, t Target) *Calculator {
	return &Calculator{
		graph:  g,
		target: t,
		cache:  make(map[string]Info),
		active: make(map[string]bool),
	}
}

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Type returns the size and alignment of any complete type.
func (c *Calculator) Type(t cdecl.Type) (size, align uint32, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typ(t)
}

// Struct returns the layout of the struct or union declared under tag.
func (c *Calculator) Struct(tag string) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strct(tag)
}

func (c *Calculator) typ(t cdecl.Type) (uint32, uint32, error) {
	switch t.Kind {
	case cdecl.TypePrim:
		if t.Prim == cdecl.Void {
			return 0, 0, errors.UnmappableType("void", "void has no object size")
		}
		s, a, ok := c.target.Primitive(t.Prim)
		if !ok {
			return 0, 0, errors.UnmappableType(t.String(), "no host representation in this data model")
		}
		return s, a, nil

	case cdecl.TypePointer, cdecl.TypeFuncPtr:
		s, a := c.target.Pointer()
		return s, a, nil

	case cdecl.TypeArray:
		if t.Elem == nil {
			return 0, 0, errors.InvalidData(errors.PhaseMap, nil, "array without an element type")
		}
		es, ea, err := c.typ(*t.Elem)
		if err != nil {
			return 0, 0, err
		}
		total := uint64(es) * uint64(t.Len)
		if total > 1<<30 {
			return 0, 0, errors.New(errors.PhaseMap, errors.KindOverflow).
				CType(t.String()).
				Detail("array of %d bytes exceeds the mappable size", total).
				Build()
		}
		return uint32(total), ea, nil

	case cdecl.TypeStructRef, cdecl.TypeUnionRef:
		info, err := c.strct(t.Tag)
		if err != nil {
			return 0, 0, err
		}
		return info.Size, info.Align, nil

	case cdecl.TypeEnumRef:
		if _, ok := c.graph.EnumByTag(t.Tag); !ok {
			return 0, 0, errors.NotFound(errors.PhaseMap, "enum", t.Tag)
		}
		// Enums bridge as int32 regardless of their value range; typemap
		// rejects enumerators that do not fit.
		return 4, 4, nil

	case cdecl.TypeTypedefRef:
		r, ok := c.graph.Resolve(t)
		if !ok {
			return 0, 0, errors.NotFound(errors.PhaseMap, "typedef", t.Tag)
		}
		return c.typ(r)
	}
	return 0, 0, errors.InvalidData(errors.PhaseMap, nil, "unknown type kind")
}

func (c *Calculator) strct(tag string) (Info, error) {
	if info, ok := c.cache[tag]; ok {
		return info, nil
	}

	sd, ok := c.graph.StructByTag(tag)
	if !ok {
		return Info{}, errors.NotFound(errors.PhaseMap, "struct or union", tag)
	}
	kind := "struct "
	if sd.Union {
		kind = "union "
	}
	if sd.Incomplete {
		return Info{}, errors.UnmappableType(kind+tag, "incomplete type used by value")
	}
	if c.active[tag] {
		return Info{}, errors.UnmappableType(kind+tag, "contains itself by value")
	}
	c.active[tag] = true

	var info Info
	var err error
	switch {
	case sd.Union:
		info, err = c.union(sd)
	case c.target.MSBitFields():
		info, err = c.recordMS(sd)
	default:
		info, err = c.recordSysV(sd)
	}

	delete(c.active, tag)
	if err != nil {
		return Info{}, err
	}
	c.cache[tag] = info
	return info, nil
}

// recordSysV lays out a struct with System V allocation: a bit-field goes at
// the current bit position if it fits inside a storage unit of its declared
// type, otherwise at the next unit boundary. Zero-width bit-fields realign to
// their type's boundary; unnamed bit-fields never affect struct alignment.
func (c *Calculator) recordSysV(sd *cdecl.StructDecl) (Info, error) {
	fields := make([]Field, 0, len(sd.Fields))
	bits := uint32(0)
	maxAlign := uint32(1)

	for _, f := range sd.Fields {
		if !f.BitField {
			size, align, err := c.typ(f.Type)
			if err != nil {
				return Info{}, err
			}
			bits = AlignTo(bits, align*8)
			fields = append(fields, Field{Name: f.Name, Offset: bits / 8, Size: size, Align: align})
			bits += size * 8
			if align > maxAlign {
				maxAlign = align
			}
			continue
		}

		size, align, err := c.bitFieldType(sd, f)
		if err != nil {
			return Info{}, err
		}
		width := uint32(f.Bits)
		unitBits := size * 8
		if width > unitBits {
			return Info{}, bitFieldTooWide(sd, f, unitBits)
		}
		if width == 0 {
			bits = AlignTo(bits, align*8)
			fields = append(fields, Field{Name: f.Name, Offset: bits / 8, Size: size, Align: align, BitField: true})
			continue
		}
		if bits/unitBits != (bits+width-1)/unitBits {
			bits = AlignTo(bits, unitBits)
		}
		unitStart := bits / unitBits * size
		fields = append(fields, Field{
			Name:     f.Name,
			Offset:   unitStart,
			Size:     size,
			Align:    align,
			BitOff:   bits - unitStart*8,
			Bits:     width,
			BitField: true,
		})
		bits += width
		if f.Name != "" && align > maxAlign {
			maxAlign = align
		}
	}

	return Info{Size: AlignTo(bits, maxAlign*8) / 8, Align: maxAlign, Fields: fields}, nil
}

// recordMS lays out a struct with MSVC allocation: adjacent bit-fields share
// a storage unit only while their declared types have the same size and the
// unit has room; any other member closes the run. Every bit-field's declared
// type contributes to struct alignment.
func (c *Calculator) recordMS(sd *cdecl.StructDecl) (Info, error) {
	fields := make([]Field, 0, len(sd.Fields))
	bits := uint32(0)
	maxAlign := uint32(1)

	runSize := uint32(0) // unit size of the open run, 0 when closed
	runStart := uint32(0)
	runUsed := uint32(0)

	closeRun := func() {
		if runSize != 0 {
			bits = runStart + runSize*8
			runSize = 0
		}
	}

	for _, f := range sd.Fields {
		if !f.BitField {
			closeRun()
			size, align, err := c.typ(f.Type)
			if err != nil {
				return Info{}, err
			}
			bits = AlignTo(bits, align*8)
			fields = append(fields, Field{Name: f.Name, Offset: bits / 8, Size: size, Align: align})
			bits += size * 8
			if align > maxAlign {
				maxAlign = align
			}
			continue
		}

		size, align, err := c.bitFieldType(sd, f)
		if err != nil {
			return Info{}, err
		}
		width := uint32(f.Bits)
		if width > size*8 {
			return Info{}, bitFieldTooWide(sd, f, size*8)
		}
		if align > maxAlign {
			maxAlign = align
		}
		if width == 0 {
			closeRun()
			bits = AlignTo(bits, align*8)
			fields = append(fields, Field{Name: f.Name, Offset: bits / 8, Size: size, Align: align, BitField: true})
			continue
		}
		if runSize != size || runUsed+width > size*8 {
			closeRun()
			bits = AlignTo(bits, align*8)
			runSize, runStart, runUsed = size, bits, 0
		}
		fields = append(fields, Field{
			Name:     f.Name,
			Offset:   runStart / 8,
			Size:     size,
			Align:    align,
			BitOff:   runUsed,
			Bits:     width,
			BitField: true,
		})
		runUsed += width
	}
	closeRun()

	return Info{Size: AlignTo(bits, maxAlign*8) / 8, Align: maxAlign, Fields: fields}, nil
}

func (c *Calculator) union(sd *cdecl.StructDecl) (Info, error) {
	fields := make([]Field, 0, len(sd.Fields))
	maxSize := uint32(0)
	maxAlign := uint32(1)

	for _, f := range sd.Fields {
		var size, align uint32
		var err error
		if f.BitField {
			size, align, err = c.bitFieldType(sd, f)
			if err == nil && uint32(f.Bits) > size*8 {
				err = bitFieldTooWide(sd, f, size*8)
			}
		} else {
			size, align, err = c.typ(f.Type)
		}
		if err != nil {
			return Info{}, err
		}
		fields = append(fields, Field{
			Name:     f.Name,
			Size:     size,
			Align:    align,
			Bits:     uint32(f.Bits),
			BitField: f.BitField,
		})
		if size > maxSize {
			maxSize = size
		}
		if align > maxAlign {
			maxAlign = align
		}
	}

	return Info{Size: AlignTo(maxSize, maxAlign), Align: maxAlign, Fields: fields}, nil
}

// bitFieldType resolves a bit-field's declared type, which C restricts to
// integer types; enums count, with their int32 bridge width.
func (c *Calculator) bitFieldType(sd *cdecl.StructDecl, f cdecl.Field) (uint32, uint32, error) {
	t, ok := c.graph.Resolve(f.Type)
	if !ok {
		return 0, 0, errors.NotFound(errors.PhaseMap, "typedef", f.Type.Tag)
	}
	switch {
	case t.Kind == cdecl.TypePrim && t.Prim.IsInteger():
		s, a, ok := c.target.Primitive(t.Prim)
		if !ok {
			return 0, 0, errors.UnmappableType(t.String(), "no host representation in this data model")
		}
		return s, a, nil
	case t.Kind == cdecl.TypeEnumRef:
		if _, ok := c.graph.EnumByTag(t.Tag); !ok {
			return 0, 0, errors.NotFound(errors.PhaseMap, "enum", t.Tag)
		}
		return 4, 4, nil
	}
	return 0, 0, errors.InvalidData(errors.PhaseMap, []string{sd.Tag, f.Name},
		"bit-field with a non-integer type "+t.String())
}

func bitFieldTooWide(sd *cdecl.StructDecl, f cdecl.Field, unitBits uint32) error {
	return errors.InvalidData(errors.PhaseMap, []string{sd.Tag, f.Name},
		fmt.Sprintf("bit-field width %d exceeds its %d-bit type", f.Bits, unitBits))
}
