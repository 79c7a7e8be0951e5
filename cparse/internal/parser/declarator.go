package parser

import (
	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/cparse/internal/token"
	"github.com/wippyai/ffi-bridge/errors"
)

// declarator is the parsed form of one declarator: its name (empty for
// abstract declarators), the resulting type, and the signature when it
// declares a function.
type declarator struct {
	name string
	typ  cdecl.Type
	fn   *cdecl.FuncType
	conv cdecl.CallConv
	file string
	line int
}

// parseDeclarator parses pointers, the direct declarator, and array or
// parameter suffixes, starting from the specifier type.
func (p *Parser) parseDeclarator(base cdecl.Type, conv cdecl.CallConv) (declarator, error) {
	d := declarator{typ: base, conv: conv}
	d.file, d.line = p.here()

	if err := p.parsePointerPrefix(&d.typ); err != nil {
		return d, err
	}

	// Convention tokens may sit between pointers and the name.
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}
		switch t.Value {
		case "__cdecl":
			d.conv = cdecl.ConvCdecl
		case "__stdcall":
			d.conv = cdecl.ConvStdcall
		case "__fastcall":
			d.conv = cdecl.ConvFastcall
		default:
			goto direct
		}
		p.next()
	}

direct:
	t := p.peek()
	switch {
	case t != nil && t.Type == token.LParen:
		return p.parseFuncPointer(d)
	case t != nil && t.Type == token.Ident:
		d.name = t.Value
		d.file, d.line = t.File, t.Line
		p.next()
	}

	return p.parseDeclaratorSuffix(d)
}

// parsePointerPrefix consumes `*` with trailing qualifiers, wrapping typ.
func (p *Parser) parsePointerPrefix(typ *cdecl.Type) error {
	for p.accept(token.Star) != nil {
		*typ = cdecl.PointerTo(*typ)
		for {
			if p.acceptIdent("const") {
				typ.Const = true
				continue
			}
			if p.acceptIdent("volatile") || p.acceptIdent("restrict") || p.acceptIdent("__restrict") || p.acceptIdent("__restrict__") {
				continue
			}
			break
		}
	}
	return nil
}

// parseDeclaratorSuffix handles `[...]` and `(...)` after the name.
func (p *Parser) parseDeclaratorSuffix(d declarator) (declarator, error) {
	var dims []int

	for {
		if p.accept(token.LBracket) != nil {
			if p.accept(token.RBracket) != nil {
				// Incomplete array: decays to a pointer in parameters,
				// rejected elsewhere by the caller.
				dims = append(dims, -1)
				continue
			}
			n, err := p.evalConstInt()
			if err != nil {
				return d, err
			}
			if n < 0 {
				return d, errors.Parse(d.file, d.line, "negative array size for %q", d.name)
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return d, err
			}
			dims = append(dims, int(n))
			continue
		}

		if t := p.peek(); t != nil && t.Type == token.LParen && d.fn == nil {
			if len(dims) > 0 {
				return d, errors.Parse(d.file, d.line, "%q declared as function returning array", d.name)
			}
			p.next()
			params, variadic, err := p.parseParams()
			if err != nil {
				return d, err
			}
			d.fn = &cdecl.FuncType{Ret: d.typ, Params: params, Variadic: variadic}
			continue
		}

		break
	}

	// Trailing GNU attributes after the declarator.
	for {
		if t := p.peek(); t != nil && t.Type == token.Ident && t.Value == "__attribute__" {
			if err := p.skipAttribute(); err != nil {
				return d, err
			}
			continue
		}
		break
	}

	if d.fn != nil && len(dims) > 0 {
		return d, errors.Parse(d.file, d.line, "%q declared as function returning array", d.name)
	}

	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i] < 0 {
			if i != 0 {
				return d, errors.Parse(d.file, d.line, "only the outermost array dimension of %q may be empty", d.name)
			}
			elem := d.typ
			d.typ = cdecl.Type{Kind: cdecl.TypeArray, Elem: &elem, Len: -1}
			continue
		}
		d.typ = cdecl.ArrayOf(d.typ, dims[i])
	}
	return d, nil
}

// parseFuncPointer handles `(* name)(params)` declarators, including extra
// pointer levels and array-of-pointer forms inside the parens.
func (p *Parser) parseFuncPointer(d declarator) (declarator, error) {
	open := p.next() // caller peeked the '('

	// MS headers spell the convention inside the parens: (__stdcall *fn).
	// Function pointer types carry no convention of their own; only
	// top-level prototypes track one.
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}
		if t.Value != "__cdecl" && t.Value != "__stdcall" && t.Value != "__fastcall" {
			break
		}
		p.next()
	}

	stars := 0
	for p.accept(token.Star) != nil {
		stars++
		for p.acceptIdent("const") || p.acceptIdent("volatile") {
		}
	}
	if stars == 0 {
		return d, errors.Parse(open.File, open.Line, "unsupported parenthesized declarator")
	}

	if t := p.peek(); t != nil && t.Type == token.Ident {
		d.name = t.Value
		d.file, d.line = t.File, t.Line
		p.next()
	}

	var dims []int
	for p.accept(token.LBracket) != nil {
		n, err := p.evalConstInt()
		if err != nil {
			return d, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return d, err
		}
		dims = append(dims, int(n))
	}

	if _, err := p.expect(token.RParen); err != nil {
		return d, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return d, err
	}
	params, variadic, err := p.parseParams()
	if err != nil {
		return d, err
	}

	typ := cdecl.Type{Kind: cdecl.TypeFuncPtr, Fn: &cdecl.FuncType{
		Ret:      d.typ,
		Params:   params,
		Variadic: variadic,
	}}
	for i := 1; i < stars; i++ {
		typ = cdecl.PointerTo(typ)
	}
	for i := len(dims) - 1; i >= 0; i-- {
		typ = cdecl.ArrayOf(typ, dims[i])
	}
	d.typ = typ

	if t := p.peek(); t != nil && t.Type == token.LParen {
		return d, errors.Parse(d.file, d.line, "declarator for %q is too involved to bridge", d.name)
	}
	return d, nil
}

// parseParams parses a parameter list after its opening paren, consuming the
// closing paren.
func (p *Parser) parseParams() ([]cdecl.Param, bool, error) {
	// `f()` and `f(void)` both declare zero bridgeable parameters.
	if p.accept(token.RParen) != nil {
		return nil, false, nil
	}
	if t := p.peek(); t != nil && t.Type == token.Ident && t.Value == "void" {
		if nt := p.peekAt(1); nt != nil && nt.Type == token.RParen {
			p.next()
			p.next()
			return nil, false, nil
		}
	}

	var params []cdecl.Param
	variadic := false
	for {
		if p.accept(token.Ellipsis) != nil {
			variadic = true
			if _, err := p.expect(token.RParen); err != nil {
				return nil, false, err
			}
			return params, variadic, nil
		}

		spec, err := p.parseDeclSpecifiers("")
		if err != nil {
			return nil, false, err
		}
		d, err := p.parseDeclarator(spec.typ, spec.conv)
		if err != nil {
			return nil, false, err
		}

		typ := d.typ
		if d.fn != nil {
			// A parameter of function type decays to a function pointer.
			typ = cdecl.Type{Kind: cdecl.TypeFuncPtr, Fn: d.fn}
		}
		if typ.Kind == cdecl.TypeArray {
			// Arrays decay to pointers at the call boundary.
			typ = cdecl.PointerTo(*typ.Elem)
		}

		params = append(params, cdecl.Param{Name: d.name, Type: typ})

		if p.accept(token.Comma) != nil {
			continue
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, false, err
		}
		return params, variadic, nil
	}
}
