package parser

import (
	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/cparse/internal/pp"
	"github.com/wippyai/ffi-bridge/cparse/internal/token"
	"github.com/wippyai/ffi-bridge/errors"
)

type Parser struct {
	graph      *cdecl.Graph
	tokens     []token.Token
	defines    []pp.Define
	defIndex   map[string][]token.Token
	funcMacros map[string]bool
	enumVals   map[string]int64
	defMemo    map[string]int64
	evaluating map[string]bool
	anonCount  map[string]int
	pos        int
}

func New(res *pp.Result) *Parser {
	p := &Parser{
		graph:      cdecl.NewGraph(),
		tokens:     res.Tokens,
		defines:    res.Defines,
		defIndex:   make(map[string][]token.Token, len(res.Defines)),
		funcMacros: res.FuncMacros,
		enumVals:   make(map[string]int64),
		defMemo:    make(map[string]int64),
		evaluating: make(map[string]bool),
		anonCount:  make(map[string]int),
	}
	for _, d := range res.Defines {
		p.defIndex[d.Name] = d.Tokens
	}
	return p
}

// Parse consumes the token stream and returns the completed graph. Macro
// constants that reduce to literals are appended after the declarations,
// in definition order.
func (p *Parser) Parse() (*cdecl.Graph, error) {
	for p.peek() != nil {
		if err := p.parseExternalDecl(); err != nil {
			return nil, err
		}
	}

	for _, d := range p.defines {
		cd, ok := p.evalDefine(d)
		if !ok {
			continue
		}
		if err := p.graph.Add(cdecl.Decl{Kind: cdecl.DeclConst, Const: cd}); err != nil {
			return nil, err
		}
	}

	return p.graph, nil
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) peekAt(off int) *token.Token {
	if p.pos+off >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+off]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, p.eofError(typ.String())
	}
	if t.Type != typ {
		return nil, errors.Parse(t.File, t.Line, "expected %v, got %q", typ, t.Value)
	}
	return t, nil
}

// accept consumes the next token only if it matches.
func (p *Parser) accept(typ token.Type) *token.Token {
	t := p.peek()
	if t == nil || t.Type != typ {
		return nil
	}
	p.pos++
	return t
}

func (p *Parser) acceptIdent(value string) bool {
	t := p.peek()
	if t == nil || t.Type != token.Ident || t.Value != value {
		return false
	}
	p.pos++
	return true
}

func (p *Parser) eofError(expected string) error {
	file, line := "", 0
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		file, line = last.File, last.Line
	}
	return errors.Parse(file, line, "unexpected end of input, expected %s", expected)
}

func (p *Parser) here() (string, int) {
	if t := p.peek(); t != nil {
		return t.File, t.Line
	}
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		return last.File, last.Line
	}
	return "", 0
}

// parseExternalDecl handles one top-level construct.
func (p *Parser) parseExternalDecl() error {
	// Stray semicolons are legal and meaningless.
	if p.accept(token.Semi) != nil {
		return nil
	}

	t := p.peek()
	if t.Type == token.Ident && t.Value == "typedef" {
		p.next()
		return p.parseTypedef()
	}

	return p.parseDeclaration()
}

// parseTypedef handles `typedef <specifiers> <declarator>{, <declarator>};`.
func (p *Parser) parseTypedef() error {
	spec, err := p.parseDeclSpecifiers("")
	if err != nil {
		return err
	}

	first := true
	for {
		d, err := p.parseDeclarator(spec.typ, spec.conv)
		if err != nil {
			return err
		}
		if d.name == "" {
			file, line := p.here()
			return errors.Parse(file, line, "typedef without a name")
		}

		typ := d.typ
		if d.fn != nil {
			// `typedef int cb(int);` declares a bare function type; as a
			// typedef it only ever appears behind a pointer, so store the
			// pointer form directly.
			typ = cdecl.Type{Kind: cdecl.TypeFuncPtr, Fn: d.fn}
		}

		// `typedef struct { ... } point_t;` names the anonymous aggregate
		// after its first alias. Later declarators in the same typedef
		// still reference the same tag, so the shared specifier follows.
		if first {
			old := typ.Tag
			p.adoptAnonTag(&typ, "", d.name)
			if typ.Tag != old && spec.typ.Kind == typ.Kind && spec.typ.Tag == old {
				spec.typ.Tag = typ.Tag
			}
			first = false
		}

		decl := cdecl.Decl{Kind: cdecl.DeclTypedef, Typedef: &cdecl.TypedefDecl{
			Name: d.name,
			Type: typ,
			Loc:  cdecl.Location{Header: d.file, Line: d.line},
		}}
		if err := p.graph.Add(decl); err != nil {
			return err
		}

		if p.accept(token.Comma) != nil {
			continue
		}
		_, err = p.expect(token.Semi)
		return err
	}
}

// parseDeclaration handles struct/union/enum definitions and function
// prototypes. Object declarations have no bridgeable symbol semantics here
// and fail fast.
func (p *Parser) parseDeclaration() error {
	spec, err := p.parseDeclSpecifiers("")
	if err != nil {
		return err
	}

	// `struct point { ... };` or `enum color { ... };`
	if p.accept(token.Semi) != nil {
		if !spec.declared {
			file, line := p.here()
			return errors.Parse(file, line, "declaration declares nothing")
		}
		return nil
	}

	d, err := p.parseDeclarator(spec.typ, spec.conv)
	if err != nil {
		return err
	}

	if d.fn == nil {
		file, line := d.file, d.line
		if d.name == "" {
			file, line = p.here()
		}
		return errors.New(errors.PhaseParse, errors.KindUnsupported).
			Location(file, line).
			Detail("object declaration %q cannot be bridged; only types, prototypes and constants translate", d.name).
			Build()
	}

	// A body instead of ';' is a definition. Static/inline definitions have
	// no linkable symbol; skip them. External definitions do not belong in
	// headers.
	if p.peek() != nil && p.peek().Type == token.LBrace {
		if spec.isStatic || spec.isInline {
			return p.skipBraces()
		}
		return errors.Parse(d.file, d.line, "function definition for %q in a header; move the body to a source file", d.name)
	}

	if _, err := p.expect(token.Semi); err != nil {
		return err
	}

	// Static functions are TU-local; no library ever exports them.
	if spec.isStatic {
		return nil
	}

	decl := cdecl.Decl{Kind: cdecl.DeclFunc, Func: &cdecl.FuncDecl{
		Name: d.name,
		Sig:  *d.fn,
		Conv: d.conv,
		Loc:  cdecl.Location{Header: d.file, Line: d.line},
	}}
	return p.graph.Add(decl)
}

// skipBraces consumes a balanced brace block, including the opening brace.
func (p *Parser) skipBraces() error {
	if _, err := p.expect(token.LBrace); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return p.eofError("'}'")
		}
		switch t.Type {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
		}
	}
	return nil
}
