package cdecl

import (
	"github.com/wippyai/ffi-bridge/errors"
)

// Graph holds every declaration from a translation run in textual order of
// first appearance. C keeps tags (struct/union/enum names) in a separate
// namespace from ordinary identifiers, and so does the graph.
//
// A graph is built once by the parser and read-only afterwards.
type Graph struct {
	Decls []Decl

	tags  map[string]int // tag namespace → index into Decls
	names map[string]int // ordinary namespace → index into Decls
}

// NewGraph returns an empty declaration graph.
func NewGraph() *Graph {
	return &Graph{
		tags:  make(map[string]int),
		names: make(map[string]int),
	}
}

// Add appends a declaration, enforcing C's namespace rules. Identical
// redeclarations (repeated prototypes, repeated typedefs to the same type)
// are tolerated and dropped; conflicting ones fail.
func (g *Graph) Add(d Decl) error {
	name := d.Name()
	if name == "" {
		return errors.InvalidData(errors.PhaseParse, nil, "declaration without a name")
	}

	switch d.Kind {
	case DeclStruct, DeclEnum:
		if i, ok := g.tags[name]; ok {
			return g.mergeTag(i, d)
		}
		g.tags[name] = len(g.Decls)
	default:
		if i, ok := g.names[name]; ok {
			return g.mergeName(i, d)
		}
		g.names[name] = len(g.Decls)
	}

	g.Decls = append(g.Decls, d)

	// Enumerators join the ordinary namespace so uses resolve and clashes
	// with typedefs or functions surface.
	if d.Kind == DeclEnum {
		idx := len(g.Decls) - 1
		for _, e := range d.Enum.Enumerators {
			if _, ok := g.names[e.Name]; ok {
				return errors.Conflict(d.Loc().Header, d.Loc().Line, "enumerator", e.Name)
			}
			g.names[e.Name] = idx
		}
	}
	return nil
}

// mergeTag handles a repeated struct/union/enum tag. Completing a previously
// incomplete struct is legal; anything else must match the existing shape.
func (g *Graph) mergeTag(i int, d Decl) error {
	prev := g.Decls[i]
	if prev.Kind != d.Kind {
		return errors.Conflict(d.Loc().Header, d.Loc().Line, d.Kind.String(), d.Name())
	}

	if d.Kind == DeclStruct {
		ps, ns := prev.Struct, d.Struct
		if ps.Union != ns.Union {
			return errors.Conflict(d.Loc().Header, d.Loc().Line, "struct", d.Name())
		}
		if ns.Incomplete {
			return nil // forward declaration after the fact, nothing to do
		}
		if ps.Incomplete {
			ps.Fields = ns.Fields
			ps.Incomplete = false
			return nil
		}
		if !fieldsEqual(ps.Fields, ns.Fields) {
			return errors.Conflict(d.Loc().Header, d.Loc().Line, "struct", d.Name())
		}
		return nil
	}

	// Enums must repeat exactly.
	pe, ne := prev.Enum, d.Enum
	if len(pe.Enumerators) != len(ne.Enumerators) {
		return errors.Conflict(d.Loc().Header, d.Loc().Line, "enum", d.Name())
	}
	for j := range pe.Enumerators {
		if pe.Enumerators[j] != ne.Enumerators[j] {
			return errors.Conflict(d.Loc().Header, d.Loc().Line, "enum", d.Name())
		}
	}
	return nil
}

// mergeName handles a repeated ordinary identifier.
func (g *Graph) mergeName(i int, d Decl) error {
	prev := g.Decls[i]
	if prev.Kind != d.Kind {
		return errors.Conflict(d.Loc().Header, d.Loc().Line, d.Kind.String(), d.Name())
	}

	switch d.Kind {
	case DeclFunc:
		if prev.Func.Sig.Equal(&d.Func.Sig) && prev.Func.Conv == d.Func.Conv {
			return nil
		}
	case DeclTypedef:
		if prev.Typedef.Type.Equal(d.Typedef.Type) {
			return nil
		}
	case DeclConst:
		p, n := prev.Const, d.Const
		if p.Kind == n.Kind && p.Int == n.Int && p.Float == n.Float && p.Str == n.Str {
			return nil
		}
	}
	return errors.Conflict(d.Loc().Header, d.Loc().Line, d.Kind.String(), d.Name())
}

func fieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Bits != b[i].Bits ||
			a[i].BitField != b[i].BitField || !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	return true
}

// LookupTag finds a struct, union, or enum by tag.
func (g *Graph) LookupTag(tag string) (Decl, bool) {
	i, ok := g.tags[tag]
	if !ok {
		return Decl{}, false
	}
	return g.Decls[i], true
}

// Lookup finds a typedef, function, constant, or enum (via one of its
// enumerators) by ordinary name.
func (g *Graph) Lookup(name string) (Decl, bool) {
	i, ok := g.names[name]
	if !ok {
		return Decl{}, false
	}
	return g.Decls[i], true
}

// StructByTag returns the struct or union declared under tag.
func (g *Graph) StructByTag(tag string) (*StructDecl, bool) {
	d, ok := g.LookupTag(tag)
	if !ok || d.Kind != DeclStruct {
		return nil, false
	}
	return d.Struct, true
}

// EnumByTag returns the enum declared under tag.
func (g *Graph) EnumByTag(tag string) (*EnumDecl, bool) {
	d, ok := g.LookupTag(tag)
	if !ok || d.Kind != DeclEnum {
		return nil, false
	}
	return d.Enum, true
}

// TypedefByName returns the typedef declared under name.
func (g *Graph) TypedefByName(name string) (*TypedefDecl, bool) {
	d, ok := g.Lookup(name)
	if !ok || d.Kind != DeclTypedef {
		return nil, false
	}
	return d.Typedef, true
}

// Functions returns every function prototype in declaration order.
func (g *Graph) Functions() []*FuncDecl {
	var fns []*FuncDecl
	for _, d := range g.Decls {
		if d.Kind == DeclFunc {
			fns = append(fns, d.Func)
		}
	}
	return fns
}

// Resolve follows typedef references until a non-typedef type is reached.
// The second return is false if a typedef name cannot be found in the graph
// or the aliases form a cycle.
func (g *Graph) Resolve(t Type) (Type, bool) {
	for depth := 0; t.Kind == TypeTypedefRef; depth++ {
		if depth > 64 {
			return t, false
		}
		td, ok := g.TypedefByName(t.Tag)
		if !ok {
			return t, false
		}
		// A const qualifier on the alias carries through to the target.
		wasConst := t.Const
		t = td.Type
		if wasConst {
			t.Const = true
		}
	}
	return t, true
}

// RenameTag gives a synthesized anonymous tag a better name, typically the
// typedef alias or enclosing field it is reached through. It refuses to
// clobber an existing tag.
func (g *Graph) RenameTag(old, new string) bool {
	i, ok := g.tags[old]
	if !ok || old == new {
		return false
	}
	if _, taken := g.tags[new]; taken {
		return false
	}
	delete(g.tags, old)
	g.tags[new] = i
	switch d := g.Decls[i]; d.Kind {
	case DeclStruct:
		d.Struct.Tag = new
	case DeclEnum:
		d.Enum.Tag = new
	}
	return true
}

// Len returns the number of declarations.
func (g *Graph) Len() int {
	return len(g.Decls)
}
