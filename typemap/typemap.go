package typemap

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/typemap/internal/layout"
)

// Layout describes the native placement of a struct or union: total size,
// alignment, and one entry per member.
type Layout = layout.Info

// LayoutField is one member's placement within a Layout.
type LayoutField = layout.Field

// TypeInfo describes how one C type crosses the bridge: its Go spelling,
// its libffi descriptor expression, its size and alignment under the
// selected platform, and how the marshaling layer treats values of it.
type TypeInfo struct {
	C     cdecl.Type
	Go    string
	FFI   string
	Size  uint32
	Align uint32
	Class Classification
}

// BitAccessor describes one named bit-field inside a storage unit. Shift
// counts from bit zero of the unit; Go is the declared member type the
// accessor presents.
type BitAccessor struct {
	Name   string
	Go     string
	Shift  uint32
	Width  uint32
	Signed bool
}

// GoField is one field of the Go struct the emitter will declare: a mapped
// member, a bit-field storage unit with its accessors, or explicit padding.
// Size and Align describe the field under Go's own layout rules. FFI is the
// libffi element descriptor repeated FFICount times; arrays flatten into
// repeated elements and padding repeats the byte descriptor.
type GoField struct {
	Name     string
	Go       string
	Offset   uint32
	Size     uint32
	Align    uint32
	FFI      string
	FFICount uint32
	Pad      bool
	Bits     []BitAccessor
}

// StructInfo carries everything the emitter needs for one struct or union.
// GoAlign can be smaller than Layout.Align when only unnamed bit-fields
// demanded the native alignment; the sizes still match in that case.
type StructInfo struct {
	Decl     *cdecl.StructDecl
	GoName   string
	Layout   Layout
	GoFields []GoField
	GoAlign  uint32
	Opaque   bool
	Union    bool
}

// EnumMember pairs one enumerator with its Go constant name.
type EnumMember struct {
	CName  string
	GoName string
	Value  int64
}

// EnumInfo maps one enum. The underlying Go type is always int32.
type EnumInfo struct {
	Decl    *cdecl.EnumDecl
	GoName  string
	Members []EnumMember
}

// TypedefInfo maps one alias. EmitAlias is false when the typedef merely
// named the anonymous aggregate it declared; the aggregate then already
// owns the Go name and an alias would refer to itself.
type TypedefInfo struct {
	Decl      *cdecl.TypedefDecl
	GoName    string
	Info      TypeInfo
	EmitAlias bool
}

// ParamInfo is one mapped function parameter.
type ParamInfo struct {
	Name string
	Info TypeInfo
}

// FuncInfo is one mapped prototype. For procedures Ret carries an empty Go
// spelling and the void libffi descriptor.
type FuncInfo struct {
	Decl     *cdecl.FuncDecl
	GoName   string
	Ret      TypeInfo
	Params   []ParamInfo
	Variadic bool
}

// ConstInfo pairs a macro or enumerator constant with its Go name.
type ConstInfo struct {
	Decl   *cdecl.ConstDecl
	GoName string
}

// Mapped is the result of mapping a declaration graph onto one platform.
// The slices preserve declaration order. A Mapped value is immutable after
// Map returns and safe for concurrent use.
type Mapped struct {
	Platform Platform
	Graph    *cdecl.Graph
	Structs  []*StructInfo
	Enums    []*EnumInfo
	Typedefs []*TypedefInfo
	Funcs    []*FuncInfo
	Consts   []*ConstInfo

	calc    *layout.Calculator
	structs map[string]*StructInfo
	funcs   map[string]*FuncInfo
}

// Map assigns every declaration in g its host representation under
// platform p. Declarations are processed in graph order, so the result is
// deterministic for a given input.
func Map(g *cdecl.Graph, p Platform) (*Mapped, error) {
	if g == nil {
		return nil, errors.InvalidData(errors.PhaseMap, nil, "no declaration graph given")
	}

	m := &Mapped{
		Platform: p,
		Graph:    g,
		calc:     layout.NewCalculator(g, p),
		structs:  make(map[string]*StructInfo),
		funcs:    make(map[string]*FuncInfo),
	}

	for _, d := range g.Decls {
		switch d.Kind {
		case cdecl.DeclStruct:
			si, err := m.buildStruct(d.Struct)
			if err != nil {
				return nil, err
			}
			m.Structs = append(m.Structs, si)
			m.structs[d.Struct.Tag] = si
		case cdecl.DeclEnum:
			ei, err := buildEnum(d.Enum)
			if err != nil {
				return nil, err
			}
			m.Enums = append(m.Enums, ei)
		case cdecl.DeclTypedef:
			ti, err := m.buildTypedef(d.Typedef)
			if err != nil {
				return nil, err
			}
			m.Typedefs = append(m.Typedefs, ti)
		case cdecl.DeclFunc:
			fi, err := m.buildFunc(d.Func)
			if err != nil {
				return nil, err
			}
			m.Funcs = append(m.Funcs, fi)
			m.funcs[d.Func.Name] = fi
		case cdecl.DeclConst:
			m.Consts = append(m.Consts, &ConstInfo{Decl: d.Const, GoName: exportName(d.Const.Name)})
		}
	}

	if err := m.checkNames(); err != nil {
		return nil, err
	}
	return m, nil
}

// StructByTag returns the mapped struct or union declared under tag.
func (m *Mapped) StructByTag(tag string) (*StructInfo, bool) {
	si, ok := m.structs[tag]
	return si, ok
}

// FuncByName returns the mapped prototype for a C function name.
func (m *Mapped) FuncByName(name string) (*FuncInfo, bool) {
	fi, ok := m.funcs[name]
	return fi, ok
}

// Type maps one C type to its host representation. The method is safe for
// concurrent use once Map has returned.
func (m *Mapped) Type(t cdecl.Type) (TypeInfo, error) {
	switch t.Kind {
	case cdecl.TypePrim:
		if t.IsVoid() {
			return TypeInfo{}, errors.UnmappableType("void", "void has no value representation")
		}
		size, align, ok := m.Platform.Primitive(t.Prim)
		if !ok {
			return TypeInfo{}, errors.UnmappableType(t.String(), "no host representation in this data model")
		}
		goT, _ := m.Platform.GoScalar(t.Prim)
		return TypeInfo{C: t, Go: goT, FFI: ffiByGo[goT], Size: size, Align: align, Class: ScalarAutoConvert}, nil

	case cdecl.TypePointer:
		size, align := m.Platform.Pointer()
		info := TypeInfo{C: t, Go: "uintptr", FFI: "&ffi.TypePointer", Size: size, Align: align, Class: OpaqueHandle}
		if t.Elem == nil {
			return info, nil
		}
		elem, ok := m.Graph.Resolve(*t.Elem)
		if !ok {
			return TypeInfo{}, errors.NotFound(errors.PhaseMap, "typedef", t.Elem.Tag)
		}
		if cdecl.PointerTo(elem).IsCharPointer() {
			info.Go = "*byte"
			info.Class = StringAutoConvert
			return info, nil
		}
		if elem.Kind == cdecl.TypeStructRef || elem.Kind == cdecl.TypeUnionRef {
			if sd, ok := m.Graph.StructByTag(elem.Tag); ok {
				if sd.Incomplete {
					// Pointer to an incomplete type is the handle itself.
					info.Go = GoName(elem.Tag)
				} else {
					info.Go = "*" + GoName(elem.Tag)
				}
			}
		}
		return info, nil

	case cdecl.TypeArray:
		if t.Elem == nil {
			return TypeInfo{}, errors.InvalidData(errors.PhaseMap, nil, "array without an element type")
		}
		elem, err := m.Type(*t.Elem)
		if err != nil {
			return TypeInfo{}, err
		}
		size, align, err := m.calc.Type(t)
		if err != nil {
			return TypeInfo{}, err
		}
		return TypeInfo{
			C:    t,
			Go:   fmt.Sprintf("[%d]%s", t.Len, elem.Go),
			Size: size, Align: align,
			Class: ScalarAutoConvert,
		}, nil

	case cdecl.TypeStructRef, cdecl.TypeUnionRef:
		size, align, err := m.calc.Type(t)
		if err != nil {
			return TypeInfo{}, err
		}
		name := GoName(t.Tag)
		return TypeInfo{
			C:  t,
			Go: name, FFI: "&FFIType" + name,
			Size: size, Align: align,
			Class: ScalarAutoConvert,
		}, nil

	case cdecl.TypeEnumRef:
		if _, ok := m.Graph.EnumByTag(t.Tag); !ok {
			return TypeInfo{}, errors.NotFound(errors.PhaseMap, "enum", t.Tag)
		}
		return TypeInfo{
			C:  t,
			Go: GoName(t.Tag), FFI: "&ffi.TypeSint32",
			Size: 4, Align: 4,
			Class: ScalarAutoConvert,
		}, nil

	case cdecl.TypeTypedefRef:
		if _, ok := m.Graph.Resolve(t); !ok {
			return TypeInfo{}, errors.NotFound(errors.PhaseMap, "typedef", t.Tag)
		}
		td, _ := m.Graph.TypedefByName(t.Tag)
		info, err := m.Type(td.Type)
		if err != nil {
			return TypeInfo{}, err
		}
		info.C = t
		info.Go = GoName(td.Name)
		return info, nil

	case cdecl.TypeFuncPtr:
		size, align := m.Platform.Pointer()
		return TypeInfo{C: t, Go: "uintptr", FFI: "&ffi.TypePointer", Size: size, Align: align, Class: OpaqueHandle}, nil
	}
	return TypeInfo{}, errors.InvalidData(errors.PhaseMap, nil, "unknown type kind")
}

func (m *Mapped) buildStruct(sd *cdecl.StructDecl) (*StructInfo, error) {
	si := &StructInfo{
		Decl:   sd,
		GoName: GoName(sd.Tag),
		Opaque: sd.Incomplete,
		Union:  sd.Union,
	}
	if sd.Incomplete {
		return si, nil
	}

	info, err := m.calc.Struct(sd.Tag)
	if err != nil {
		return nil, wrapDecl(err, structPath(sd))
	}
	si.Layout = info

	if sd.Union {
		si.GoFields = unionPlan(info)
		si.GoAlign = info.Align
		return si, nil
	}

	fields, goAlign, err := m.planFields(sd, info)
	if err != nil {
		return nil, err
	}
	si.GoFields = fields
	si.GoAlign = goAlign

	if err := checkFieldNames(sd, fields); err != nil {
		return nil, err
	}
	return si, nil
}

// planFields lays the Go struct out member by member and verifies that the
// Go compiler will land every field on its native offset. Explicit [N]byte
// fields fill the gaps; bit-fields collapse into unexported storage units.
func (m *Mapped) planFields(sd *cdecl.StructDecl, info layout.Info) ([]GoField, uint32, error) {
	var out []GoField
	cur := uint32(0)
	goAlign := uint32(1)
	unitIdx := 0

	pad := func(upTo uint32) {
		if cur < upTo {
			out = append(out, GoField{
				Name: "_", Go: fmt.Sprintf("[%d]byte", upTo-cur),
				Offset: cur, Size: upTo - cur, Align: 1, Pad: true,
				FFI: "&ffi.TypeUint8", FFICount: upTo - cur,
			})
			cur = upTo
		}
	}

	for i := 0; i < len(info.Fields); {
		lf := info.Fields[i]
		if !lf.BitField {
			ti, err := m.Type(sd.Fields[i].Type)
			if err != nil {
				return nil, 0, wrapDecl(err, structPath(sd), lf.Name)
			}
			fa := m.goAlignOf(sd.Fields[i].Type, ti)
			if layout.AlignTo(cur, fa) > lf.Offset {
				return nil, 0, layoutMismatch(sd, lf.Name, lf.Offset, layout.AlignTo(cur, fa))
			}
			pad(lf.Offset)
			fe, fc := m.ffiElem(sd.Fields[i].Type)
			out = append(out, GoField{
				Name: GoName(lf.Name), Go: ti.Go,
				Offset: lf.Offset, Size: lf.Size, Align: fa,
				FFI: fe, FFICount: fc,
			})
			cur = lf.Offset + lf.Size
			if fa > goAlign {
				goAlign = fa
			}
			i++
			continue
		}

		j := i
		for j < len(info.Fields) && info.Fields[j].BitField {
			j++
		}
		for _, u := range m.bitUnits(sd.Fields[i:j], info.Fields[i:j]) {
			if layout.AlignTo(cur, u.size) > u.start {
				return nil, 0, layoutMismatch(sd, "bit-field unit", u.start, layout.AlignTo(cur, u.size))
			}
			pad(u.start)
			out = append(out, GoField{
				Name: fmt.Sprintf("bits%d", unitIdx), Go: intName(u.size, false),
				Offset: u.start, Size: u.size, Align: u.size,
				FFI: uintDesc(u.size), FFICount: 1,
				Bits: u.accs,
			})
			cur = u.start + u.size
			if u.size > goAlign {
				goAlign = u.size
			}
			unitIdx++
		}
		i = j
	}

	pad(info.Size)
	if layout.AlignTo(cur, goAlign) != info.Size {
		return nil, 0, layoutMismatch(sd, "trailing padding", info.Size, layout.AlignTo(cur, goAlign))
	}
	return out, goAlign, nil
}

// goAlignOf returns the alignment the Go compiler gives a mapped field.
// It matches the native alignment for scalars and pointers; for nested
// aggregates the planned Go alignment can be lower.
func (m *Mapped) goAlignOf(t cdecl.Type, ti TypeInfo) uint32 {
	r, ok := m.Graph.Resolve(t)
	if !ok {
		return ti.Align
	}
	switch r.Kind {
	case cdecl.TypeStructRef, cdecl.TypeUnionRef:
		if si, ok := m.structs[r.Tag]; ok && !si.Opaque {
			return si.GoAlign
		}
	case cdecl.TypeArray:
		if r.Elem == nil {
			return ti.Align
		}
		et, err := m.Type(*r.Elem)
		if err != nil {
			return ti.Align
		}
		return m.goAlignOf(*r.Elem, et)
	}
	return ti.Align
}

type bitRec struct {
	lf layout.Field
	cf cdecl.Field
}

type bitUnit struct {
	start uint32
	size  uint32
	accs  []BitAccessor
}

// bitUnits groups the named bit-field records of one run into storage
// units. Units are power-of-two sized and aligned, so two of them either
// nest or stay disjoint; sorting by offset, then descending size, makes
// every overlapping record fall inside the currently open unit.
func (m *Mapped) bitUnits(cfs []cdecl.Field, lfs []layout.Field) []bitUnit {
	recs := make([]bitRec, 0, len(lfs))
	for k := range lfs {
		if lfs[k].Bits > 0 && lfs[k].Name != "" {
			recs = append(recs, bitRec{lf: lfs[k], cf: cfs[k]})
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].lf.Offset != recs[j].lf.Offset {
			return recs[i].lf.Offset < recs[j].lf.Offset
		}
		return recs[i].lf.Size > recs[j].lf.Size
	})

	var units []bitUnit
	for _, r := range recs {
		if n := len(units); n > 0 && r.lf.Offset < units[n-1].start+units[n-1].size {
			units[n-1].accs = append(units[n-1].accs, m.accessor(r, units[n-1].start))
			continue
		}
		u := bitUnit{start: r.lf.Offset, size: r.lf.Size}
		u.accs = append(u.accs, m.accessor(r, r.lf.Offset))
		units = append(units, u)
	}
	for i := range units {
		accs := units[i].accs
		sort.SliceStable(accs, func(a, b int) bool { return accs[a].Shift < accs[b].Shift })
	}
	return units
}

func (m *Mapped) accessor(r bitRec, unitStart uint32) BitAccessor {
	goType, signed := m.bitFieldGo(r.cf)
	return BitAccessor{
		Name:   GoName(r.lf.Name),
		Go:     goType,
		Shift:  (r.lf.Offset-unitStart)*8 + r.lf.BitOff,
		Width:  r.lf.Bits,
		Signed: signed,
	}
}

// bitFieldGo picks the accessor type for a bit-field member. Layout has
// already validated the declared type, so resolution cannot fail here.
func (m *Mapped) bitFieldGo(cf cdecl.Field) (string, bool) {
	t, ok := m.Graph.Resolve(cf.Type)
	if !ok {
		return "uint32", false
	}
	if t.Kind == cdecl.TypeEnumRef {
		return "int32", true
	}
	goT, _ := m.Platform.GoScalar(t.Prim)
	if goT == "bool" || goT == "" {
		goT = "uint8"
	}
	signed := !t.Prim.IsUnsigned()
	switch t.Prim {
	case cdecl.Char:
		signed = m.Platform.CharSigned
	case cdecl.WChar:
		signed = m.Platform.WCharSigned
	case cdecl.Bool:
		signed = false
	}
	return goT, signed
}

// ffiElem returns the libffi element descriptor for one member and how many
// times it repeats; arrays flatten into repeated elements.
func (m *Mapped) ffiElem(t cdecl.Type) (string, uint32) {
	r, ok := m.Graph.Resolve(t)
	if !ok {
		return "&ffi.TypePointer", 1
	}
	if r.Kind == cdecl.TypeArray {
		if r.Elem == nil || r.Len <= 0 {
			return "&ffi.TypeUint8", 0
		}
		e, n := m.ffiElem(*r.Elem)
		return e, n * uint32(r.Len)
	}
	info, err := m.Type(r)
	if err != nil {
		return "&ffi.TypePointer", 1
	}
	return info.FFI, 1
}

// unionPlan renders a union as raw storage: a zero-width anchor pins the
// alignment and a byte array reserves the size.
func unionPlan(info layout.Info) []GoField {
	var fields []GoField
	if info.Align > 1 {
		fields = append(fields, GoField{
			Name: "_", Go: fmt.Sprintf("[0]%s", intName(info.Align, false)),
			Offset: 0, Size: 0, Align: info.Align, Pad: true,
		})
	}
	fields = append(fields, GoField{
		Name: "Raw", Go: fmt.Sprintf("[%d]byte", info.Size),
		Offset: 0, Size: info.Size, Align: 1,
		FFI: "&ffi.TypeUint8", FFICount: info.Size,
	})
	return fields
}

func buildEnum(ed *cdecl.EnumDecl) (*EnumInfo, error) {
	ei := &EnumInfo{Decl: ed, GoName: GoName(ed.Tag)}
	for _, en := range ed.Enumerators {
		if en.Value > math.MaxInt32 || en.Value < math.MinInt32 {
			return nil, errors.UnmappableType("enum "+ed.Tag,
				fmt.Sprintf("enumerator %s value %d does not fit the int32 underlying type", en.Name, en.Value))
		}
		ei.Members = append(ei.Members, EnumMember{CName: en.Name, GoName: exportName(en.Name), Value: en.Value})
	}
	return ei, nil
}

func (m *Mapped) buildTypedef(td *cdecl.TypedefDecl) (*TypedefInfo, error) {
	ti := &TypedefInfo{
		Decl:      td,
		GoName:    GoName(td.Name),
		EmitAlias: !namesAdoptedTag(td),
	}

	// A typedef may name an incomplete aggregate; it aliases the handle
	// type then instead of a value layout.
	if r, ok := m.Graph.Resolve(cdecl.TypedefRef(td.Name)); ok &&
		(r.Kind == cdecl.TypeStructRef || r.Kind == cdecl.TypeUnionRef) {
		if sd, ok := m.Graph.StructByTag(r.Tag); ok && sd.Incomplete {
			size, align := m.Platform.Pointer()
			ti.Info = TypeInfo{
				C: cdecl.TypedefRef(td.Name), Go: GoName(r.Tag),
				FFI: "&ffi.TypePointer", Size: size, Align: align,
				Class: OpaqueHandle,
			}
			return ti, nil
		}
	}

	info, err := m.Type(cdecl.TypedefRef(td.Name))
	if err != nil {
		return nil, wrapDecl(err, "typedef "+td.Name)
	}
	ti.Info = info
	return ti, nil
}

// namesAdoptedTag reports whether the typedef only named the anonymous
// aggregate it declared. The aggregate keeps the Go name in that case.
func namesAdoptedTag(td *cdecl.TypedefDecl) bool {
	switch td.Type.Kind {
	case cdecl.TypeStructRef, cdecl.TypeUnionRef, cdecl.TypeEnumRef:
		return td.Type.Tag == td.Name
	}
	return false
}

func (m *Mapped) buildFunc(fd *cdecl.FuncDecl) (*FuncInfo, error) {
	fi := &FuncInfo{
		Decl:     fd,
		GoName:   GoName(fd.Name),
		Variadic: fd.Sig.Variadic,
	}

	if fd.Sig.Ret.IsVoid() {
		fi.Ret = TypeInfo{C: fd.Sig.Ret, FFI: "&ffi.TypeVoid", Class: ScalarAutoConvert}
	} else {
		ret, err := m.Type(fd.Sig.Ret)
		if err != nil {
			return nil, wrapDecl(err, "function "+fd.Name, "return")
		}
		fi.Ret = ret
	}

	for i, p := range fd.Sig.Params {
		info, err := m.Type(p.Type)
		if err != nil {
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("parameter %d", i+1)
			}
			return nil, wrapDecl(err, "function "+fd.Name, name)
		}
		fi.Params = append(fi.Params, ParamInfo{Name: p.Name, Info: info})
	}
	return fi, nil
}

// checkNames rejects two declarations that map to the same exported Go
// name, such as calc_add and calcAdd.
func (m *Mapped) checkNames() error {
	names := make(map[string]string)
	claim := func(goName, origin string) error {
		if goName == "" {
			return nil
		}
		if prev, ok := names[goName]; ok {
			return errors.New(errors.PhaseMap, errors.KindConflict).
				Detail("Go name %q generated for both %s and %s", goName, prev, origin).
				Build()
		}
		names[goName] = origin
		return nil
	}

	for _, si := range m.Structs {
		if err := claim(si.GoName, structPath(si.Decl)); err != nil {
			return err
		}
	}
	for _, ei := range m.Enums {
		if err := claim(ei.GoName, "enum "+ei.Decl.Tag); err != nil {
			return err
		}
		for _, mem := range ei.Members {
			if err := claim(mem.GoName, "enumerator "+mem.CName); err != nil {
				return err
			}
		}
	}
	for _, ti := range m.Typedefs {
		if !ti.EmitAlias {
			continue
		}
		if err := claim(ti.GoName, "typedef "+ti.Decl.Name); err != nil {
			return err
		}
	}
	for _, fi := range m.Funcs {
		if err := claim(fi.GoName, "function "+fi.Decl.Name); err != nil {
			return err
		}
	}
	for _, ci := range m.Consts {
		if err := claim(ci.GoName, "constant "+ci.Decl.Name); err != nil {
			return err
		}
	}
	return nil
}

// checkFieldNames rejects two members of one struct that map to the same
// Go field or accessor name.
func checkFieldNames(sd *cdecl.StructDecl, fields []GoField) error {
	seen := make(map[string]bool)
	claim := func(name string) error {
		if seen[name] {
			return errors.New(errors.PhaseMap, errors.KindConflict).
				Path(structPath(sd)).
				Detail("two members map to the Go name %q", name).
				Build()
		}
		seen[name] = true
		return nil
	}
	for _, f := range fields {
		if f.Pad {
			continue
		}
		if len(f.Bits) == 0 {
			if err := claim(f.Name); err != nil {
				return err
			}
			continue
		}
		for _, b := range f.Bits {
			if err := claim(b.Name); err != nil {
				return err
			}
			if err := claim("Set" + b.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func structPath(sd *cdecl.StructDecl) string {
	if sd.Union {
		return "union " + sd.Tag
	}
	return "struct " + sd.Tag
}

func layoutMismatch(sd *cdecl.StructDecl, what string, want, got uint32) error {
	return errors.New(errors.PhaseMap, errors.KindUnmappableType).
		Path(structPath(sd)).
		Detail("%s needs offset %d but the emitted layout gives %d", what, want, got).
		Build()
}

func wrapDecl(err error, path ...string) error {
	e, ok := err.(*errors.Error)
	if !ok {
		return err
	}
	ne := *e
	ne.Path = append(append([]string{}, path...), e.Path...)
	return &ne
}

// initialisms the name mapper renders in full caps.
var initialisms = map[string]bool{
	"id": true, "url": true, "api": true, "http": true, "json": true,
	"xml": true, "sql": true, "io": true, "ip": true, "tcp": true, "udp": true,
}

// GoName converts a C identifier to an exported Go name: underscores split
// words, every word is capitalized, and known initialisms go full caps.
// Camel case inside a word is preserved, so "deviceInfo" becomes
// "DeviceInfo" and "calc_ctx_t" becomes "CalcCtxT".
func GoName(cName string) string {
	var b strings.Builder
	for _, part := range strings.Split(cName, "_") {
		if part == "" {
			continue
		}
		if initialisms[strings.ToLower(part)] {
			b.WriteString(strings.ToUpper(part))
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

// exportName keeps C spellings that are already exported, which covers the
// usual ALL_CAPS macro constants and enumerators, and maps the rest
// through GoName.
func exportName(cName string) string {
	if cName != "" && cName[0] >= 'A' && cName[0] <= 'Z' {
		return cName
	}
	return GoName(cName)
}
