package parser

import (
	"fmt"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/cparse/internal/token"
	"github.com/wippyai/ffi-bridge/errors"
)

// declSpec is the outcome of the specifier prefix of a declaration.
type declSpec struct {
	typ      cdecl.Type
	conv     cdecl.CallConv
	isStatic bool
	isInline bool
	declared bool // the specifiers alone declared something (a tag)
}

// builtinTypes are the standard typedef spellings the bridge understands
// without seeing their headers; matching includes resolves to these.
var builtinTypes = map[string]cdecl.Primitive{
	"int8_t":    cdecl.Int8,
	"uint8_t":   cdecl.Uint8,
	"int16_t":   cdecl.Int16,
	"uint16_t":  cdecl.Uint16,
	"int32_t":   cdecl.Int32,
	"uint32_t":  cdecl.Uint32,
	"int64_t":   cdecl.Int64,
	"uint64_t":  cdecl.Uint64,
	"size_t":    cdecl.Size,
	"ssize_t":   cdecl.PtrDiff,
	"ptrdiff_t": cdecl.PtrDiff,
	"intptr_t":  cdecl.IntPtrT,
	"uintptr_t": cdecl.UIntPtrT,
	"wchar_t":   cdecl.WChar,
	"bool":      cdecl.Bool,
}

// parseDeclSpecifiers consumes the type-and-qualifier prefix of a
// declaration. outerTag names the enclosing struct when parsing members, so
// anonymous nested aggregates get scoped synthetic tags.
func (p *Parser) parseDeclSpecifiers(outerTag string) (declSpec, error) {
	var s declSpec
	var isConst bool
	var signed, unsigned bool
	var shortCount, longCount int
	base := ""
	var namedType cdecl.Type
	haveNamed := false

loop:
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}

		switch t.Value {
		case "const":
			isConst = true
			p.next()
		case "volatile", "restrict", "register", "_Noreturn", "__extension__":
			p.next()
		case "extern":
			p.next()
		case "static":
			s.isStatic = true
			p.next()
		case "inline", "__inline", "__inline__", "__forceinline":
			s.isInline = true
			p.next()
		case "signed", "__signed__":
			signed = true
			p.next()
		case "unsigned":
			unsigned = true
			p.next()
		case "short":
			shortCount++
			p.next()
		case "long":
			longCount++
			p.next()
		case "char", "int", "float", "double", "void":
			if base != "" {
				return s, errors.Parse(t.File, t.Line, "conflicting type specifiers %q and %q", base, t.Value)
			}
			base = t.Value
			p.next()
		case "_Bool":
			if base != "" {
				return s, errors.Parse(t.File, t.Line, "conflicting type specifiers %q and %q", base, t.Value)
			}
			base = "bool"
			p.next()
		case "struct", "union":
			typ, declared, err := p.parseStructSpecifier(t.Value == "union", outerTag)
			if err != nil {
				return s, err
			}
			namedType, haveNamed = typ, true
			s.declared = s.declared || declared
		case "enum":
			typ, declared, err := p.parseEnumSpecifier(outerTag)
			if err != nil {
				return s, err
			}
			namedType, haveNamed = typ, true
			s.declared = s.declared || declared
		case "__cdecl":
			s.conv = cdecl.ConvCdecl
			p.next()
		case "__stdcall":
			s.conv = cdecl.ConvStdcall
			p.next()
		case "__fastcall":
			s.conv = cdecl.ConvFastcall
			p.next()
		case "__attribute__":
			if err := p.skipAttribute(); err != nil {
				return s, err
			}
		case "__declspec":
			p.next()
			if err := p.skipParens(); err != nil {
				return s, err
			}
		default:
			// An identifier is a type name only while no base is committed;
			// otherwise it starts the declarator.
			if haveNamed || base != "" || signed || unsigned || shortCount > 0 || longCount > 0 {
				break loop
			}
			if prim, ok := builtinTypes[t.Value]; ok {
				namedType, haveNamed = cdecl.PrimType(prim), true
				p.next()
				continue
			}
			if _, ok := p.graph.TypedefByName(t.Value); ok {
				namedType, haveNamed = cdecl.TypedefRef(t.Value), true
				p.next()
				continue
			}
			if p.funcMacros[t.Value] {
				return s, errors.New(errors.PhaseParse, errors.KindUnsupported).
					Location(t.File, t.Line).
					Detail("function-like macro %q cannot be translated; preprocess the header first", t.Value).
					Build()
			}
			return s, errors.Parse(t.File, t.Line, "unknown type name %q", t.Value)
		}
	}

	typ, err := p.combineSpecifiers(base, signed, unsigned, shortCount, longCount, namedType, haveNamed)
	if err != nil {
		return s, err
	}
	typ.Const = isConst
	s.typ = typ
	return s, nil
}

func (p *Parser) combineSpecifiers(base string, signed, unsigned bool, shortCount, longCount int, named cdecl.Type, haveNamed bool) (cdecl.Type, error) {
	file, line := p.here()

	if haveNamed {
		if base != "" || signed || unsigned || shortCount > 0 || longCount > 0 {
			return cdecl.Type{}, errors.Parse(file, line, "type modifiers on a named type")
		}
		return named, nil
	}

	if shortCount > 1 || longCount > 2 || (shortCount > 0 && longCount > 0) || (signed && unsigned) {
		return cdecl.Type{}, errors.Parse(file, line, "invalid type specifier combination")
	}

	switch base {
	case "char":
		if shortCount > 0 || longCount > 0 {
			return cdecl.Type{}, errors.Parse(file, line, "invalid modifier on char")
		}
		switch {
		case unsigned:
			return cdecl.PrimType(cdecl.UChar), nil
		case signed:
			return cdecl.PrimType(cdecl.SChar), nil
		default:
			return cdecl.PrimType(cdecl.Char), nil
		}
	case "float":
		if signed || unsigned || shortCount > 0 || longCount > 0 {
			return cdecl.Type{}, errors.Parse(file, line, "invalid modifier on float")
		}
		return cdecl.PrimType(cdecl.Float), nil
	case "double":
		if signed || unsigned || shortCount > 0 || longCount > 1 {
			return cdecl.Type{}, errors.Parse(file, line, "invalid modifier on double")
		}
		if longCount == 1 {
			return cdecl.PrimType(cdecl.LongDouble), nil
		}
		return cdecl.PrimType(cdecl.Double), nil
	case "void":
		if signed || unsigned || shortCount > 0 || longCount > 0 {
			return cdecl.Type{}, errors.Parse(file, line, "invalid modifier on void")
		}
		return cdecl.PrimType(cdecl.Void), nil
	case "bool":
		if signed || unsigned || shortCount > 0 || longCount > 0 {
			return cdecl.Type{}, errors.Parse(file, line, "invalid modifier on _Bool")
		}
		return cdecl.PrimType(cdecl.Bool), nil
	case "int", "":
		if base == "" && !signed && !unsigned && shortCount == 0 && longCount == 0 {
			return cdecl.Type{}, errors.Parse(file, line, "missing type specifier")
		}
		switch {
		case shortCount == 1 && unsigned:
			return cdecl.PrimType(cdecl.UShort), nil
		case shortCount == 1:
			return cdecl.PrimType(cdecl.Short), nil
		case longCount == 2 && unsigned:
			return cdecl.PrimType(cdecl.ULongLong), nil
		case longCount == 2:
			return cdecl.PrimType(cdecl.LongLong), nil
		case longCount == 1 && unsigned:
			return cdecl.PrimType(cdecl.ULong), nil
		case longCount == 1:
			return cdecl.PrimType(cdecl.Long), nil
		case unsigned:
			return cdecl.PrimType(cdecl.UInt), nil
		default:
			return cdecl.PrimType(cdecl.Int), nil
		}
	}
	return cdecl.Type{}, errors.Parse(file, line, "missing type specifier")
}

// parseStructSpecifier handles `struct [tag] [{ members }]` after peeking the
// struct/union keyword.
func (p *Parser) parseStructSpecifier(isUnion bool, outerTag string) (cdecl.Type, bool, error) {
	kw := p.next() // struct or union

	tag := ""
	if t := p.peek(); t != nil && t.Type == token.Ident {
		tag = t.Value
		p.next()
	}

	hasBody := p.peek() != nil && p.peek().Type == token.LBrace
	if tag == "" && !hasBody {
		return cdecl.Type{}, false, errors.Parse(kw.File, kw.Line, "%s without tag or body", kw.Value)
	}
	if tag == "" {
		tag = p.anonTag(outerTag)
	}

	ref := cdecl.StructRef(tag)
	if isUnion {
		ref = cdecl.UnionRef(tag)
	}

	if !hasBody {
		// First sighting of a tag registers it as incomplete; a later
		// definition fills it in.
		decl := cdecl.Decl{Kind: cdecl.DeclStruct, Struct: &cdecl.StructDecl{
			Tag:        tag,
			Union:      isUnion,
			Incomplete: true,
			Loc:        cdecl.Location{Header: kw.File, Line: kw.Line},
		}}
		if err := p.graph.Add(decl); err != nil {
			return cdecl.Type{}, false, err
		}
		return ref, true, nil
	}

	fields, err := p.parseStructBody(tag)
	if err != nil {
		return cdecl.Type{}, false, err
	}
	decl := cdecl.Decl{Kind: cdecl.DeclStruct, Struct: &cdecl.StructDecl{
		Tag:    tag,
		Union:  isUnion,
		Fields: fields,
		Loc:    cdecl.Location{Header: kw.File, Line: kw.Line},
	}}
	if err := p.graph.Add(decl); err != nil {
		return cdecl.Type{}, false, err
	}
	return ref, true, nil
}

func (p *Parser) parseStructBody(tag string) ([]cdecl.Field, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	var fields []cdecl.Field
	for {
		t := p.peek()
		if t == nil {
			return nil, p.eofError("'}'")
		}
		if t.Type == token.RBrace {
			p.next()
			return fields, nil
		}

		spec, err := p.parseDeclSpecifiers(tag)
		if err != nil {
			return nil, err
		}

		// Anonymous member: `struct { ... };` with no declarator.
		if p.peek() != nil && p.peek().Type == token.Semi && spec.declared {
			p.next()
			fields = append(fields, cdecl.Field{Type: spec.typ})
			continue
		}

		for {
			// Unnamed bit-field: `int : 3;` pads, `int : 0;` closes the unit.
			if p.peek() != nil && p.peek().Type == token.Colon {
				p.next()
				width, err := p.evalConstInt()
				if err != nil {
					return nil, err
				}
				fields = append(fields, cdecl.Field{Type: spec.typ, Bits: int(width), BitField: true})
			} else {
				d, err := p.parseDeclarator(spec.typ, spec.conv)
				if err != nil {
					return nil, err
				}
				if d.fn != nil {
					return nil, errors.Parse(d.file, d.line, "function declarator %q inside %s", d.name, tag)
				}
				if d.name == "" {
					file, line := p.here()
					return nil, errors.Parse(file, line, "member without a name in %s", tag)
				}
				if hasIncompleteArray(d.typ) {
					return nil, errors.New(errors.PhaseParse, errors.KindUnsupported).
						Location(d.file, d.line).
						Detail("flexible array member %q in %s", d.name, tag).
						Build()
				}

				f := cdecl.Field{Name: d.name, Type: d.typ}
				if p.accept(token.Colon) != nil {
					width, err := p.evalConstInt()
					if err != nil {
						return nil, err
					}
					f.Bits = int(width)
					f.BitField = true
				}

				// A member whose type is a freshly synthesized anonymous
				// aggregate reads better named after the member itself.
				p.adoptAnonTag(&f.Type, tag, d.name)

				fields = append(fields, f)
			}

			if p.accept(token.Comma) != nil {
				continue
			}
			if _, err := p.expect(token.Semi); err != nil {
				return nil, err
			}
			break
		}
	}
}

// parseEnumSpecifier handles `enum [tag] [{ enumerators }]`.
func (p *Parser) parseEnumSpecifier(outerTag string) (cdecl.Type, bool, error) {
	kw := p.next() // enum

	tag := ""
	if t := p.peek(); t != nil && t.Type == token.Ident {
		tag = t.Value
		p.next()
	}

	hasBody := p.peek() != nil && p.peek().Type == token.LBrace
	if tag == "" && !hasBody {
		return cdecl.Type{}, false, errors.Parse(kw.File, kw.Line, "enum without tag or body")
	}
	if !hasBody {
		// Referencing an enum by tag only; it must already be defined or
		// become defined before mapping.
		return cdecl.EnumRef(tag), false, nil
	}
	if tag == "" {
		tag = p.anonTag(outerTag)
	}

	enumerators, err := p.parseEnumBody()
	if err != nil {
		return cdecl.Type{}, false, err
	}
	decl := cdecl.Decl{Kind: cdecl.DeclEnum, Enum: &cdecl.EnumDecl{
		Tag:         tag,
		Enumerators: enumerators,
		Loc:         cdecl.Location{Header: kw.File, Line: kw.Line},
	}}
	if err := p.graph.Add(decl); err != nil {
		return cdecl.Type{}, false, err
	}
	return cdecl.EnumRef(tag), true, nil
}

func (p *Parser) parseEnumBody() ([]cdecl.Enumerator, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	var out []cdecl.Enumerator
	next := int64(0)
	for {
		if p.accept(token.RBrace) != nil {
			return out, nil
		}

		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if p.accept(token.Assign) != nil {
			v, err := p.evalConstInt()
			if err != nil {
				return nil, err
			}
			next = v
		}

		out = append(out, cdecl.Enumerator{Name: name.Value, Value: next})
		// Later enumerators may reference earlier ones.
		p.enumVals[name.Value] = next
		next++

		if p.accept(token.Comma) != nil {
			continue
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// anonTag synthesizes a tag for an anonymous aggregate.
func (p *Parser) anonTag(outer string) string {
	scope := outer
	if scope == "" {
		scope = "__anon"
	} else {
		scope += "_anon"
	}
	p.anonCount[scope]++
	return fmt.Sprintf("%s%d", scope, p.anonCount[scope])
}

// adoptAnonTag renames a synthesized tag after the member or alias that
// exposes it, when that name is free.
func (p *Parser) adoptAnonTag(t *cdecl.Type, outer, member string) {
	if t.Kind != cdecl.TypeStructRef && t.Kind != cdecl.TypeUnionRef && t.Kind != cdecl.TypeEnumRef {
		return
	}
	prefix := "__anon"
	if outer != "" {
		prefix = outer + "_anon"
	}
	if len(t.Tag) <= len(prefix) || t.Tag[:len(prefix)] != prefix {
		return
	}
	better := member
	if outer != "" {
		better = outer + "_" + member
	}
	if p.graph.RenameTag(t.Tag, better) {
		t.Tag = better
	}
}

// skipAttribute consumes __attribute__((...)). Layout-changing attributes
// cannot be bridged and fail; the rest carry no ABI meaning here.
func (p *Parser) skipAttribute() error {
	kw := p.next() // __attribute__
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return p.eofError("')'")
		}
		switch t.Type {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		case token.Ident:
			switch t.Value {
			case "packed", "__packed__", "aligned", "__aligned__":
				return errors.New(errors.PhaseParse, errors.KindUnsupported).
					Location(kw.File, kw.Line).
					Detail("__attribute__((%s)) changes layout and cannot be bridged", t.Value).
					Build()
			}
		}
	}
	return nil
}

// skipParens consumes a balanced parenthesized group, including the opener.
func (p *Parser) skipParens() error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return p.eofError("')'")
		}
		switch t.Type {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		}
	}
	return nil
}

func hasIncompleteArray(t cdecl.Type) bool {
	return t.Kind == cdecl.TypeArray && t.Len < 0
}
