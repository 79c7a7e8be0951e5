package parser

import (
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/cparse/internal/pp"
	"github.com/wippyai/ffi-bridge/cparse/internal/token"
	"github.com/wippyai/ffi-bridge/errors"
)

// exprEval evaluates integer constant expressions: enum values, array
// lengths, bit-field widths, and macro bodies. Operators cover what header
// constants actually use; no casts, no ternaries.
type exprEval struct {
	p    *Parser
	toks []token.Token
	pos  int
}

// evalConstInt evaluates a constant expression at the parser's cursor and
// advances past it.
func (p *Parser) evalConstInt() (int64, error) {
	ev := &exprEval{p: p, toks: p.tokens, pos: p.pos}
	v, err := ev.parseExpr(1)
	if err != nil {
		return 0, err
	}
	p.pos = ev.pos
	return v, nil
}

func (e *exprEval) peek() *token.Token {
	if e.pos >= len(e.toks) {
		return nil
	}
	return &e.toks[e.pos]
}

func (e *exprEval) next() *token.Token {
	t := e.peek()
	if t != nil {
		e.pos++
	}
	return t
}

func binPrec(t *token.Token) int {
	switch t.Type {
	case token.Op:
		switch t.Value {
		case "|":
			return 1
		case "^":
			return 2
		case "&":
			return 3
		case "<<", ">>":
			return 4
		case "+", "-":
			return 5
		case "/", "%":
			return 6
		}
	case token.Star:
		return 6
	}
	return 0
}

func (e *exprEval) parseExpr(minPrec int) (int64, error) {
	v, err := e.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		t := e.peek()
		if t == nil {
			return v, nil
		}
		prec := binPrec(t)
		if prec == 0 || prec < minPrec {
			return v, nil
		}
		e.next()

		rhs, err := e.parseExpr(prec + 1)
		if err != nil {
			return 0, err
		}

		op := t.Value
		if t.Type == token.Star {
			op = "*"
		}
		switch op {
		case "|":
			v |= rhs
		case "^":
			v ^= rhs
		case "&":
			v &= rhs
		case "<<":
			v <<= uint64(rhs)
		case ">>":
			v >>= uint64(rhs)
		case "+":
			v += rhs
		case "-":
			v -= rhs
		case "*":
			v *= rhs
		case "/":
			if rhs == 0 {
				return 0, errors.Parse(t.File, t.Line, "division by zero in constant expression")
			}
			v /= rhs
		case "%":
			if rhs == 0 {
				return 0, errors.Parse(t.File, t.Line, "division by zero in constant expression")
			}
			v %= rhs
		}
	}
}

func (e *exprEval) parseUnary() (int64, error) {
	t := e.peek()
	if t == nil {
		return 0, errors.Parse("", 0, "expected constant expression")
	}

	switch {
	case t.Type == token.Op && t.Value == "-":
		e.next()
		v, err := e.parseUnary()
		return -v, err
	case t.Type == token.Op && t.Value == "+":
		e.next()
		return e.parseUnary()
	case t.Type == token.Op && t.Value == "~":
		e.next()
		v, err := e.parseUnary()
		return ^v, err
	case t.Type == token.LParen:
		e.next()
		v, err := e.parseExpr(1)
		if err != nil {
			return 0, err
		}
		close := e.next()
		if close == nil || close.Type != token.RParen {
			return 0, errors.Parse(t.File, t.Line, "missing ')' in constant expression")
		}
		return v, nil
	case t.Type == token.Number:
		e.next()
		v, err := parseCInt(t.Value)
		if err != nil {
			return 0, errors.Parse(t.File, t.Line, "%q is not an integer constant", t.Value)
		}
		return v, nil
	case t.Type == token.CharLit:
		e.next()
		return charValue(t.File, t.Line, t.Value)
	case t.Type == token.Ident:
		e.next()
		return e.p.lookupConstIdent(t)
	}

	return 0, errors.Parse(t.File, t.Line, "unexpected %q in constant expression", t.Value)
}

// lookupConstIdent resolves an identifier in constant position: enumerators
// seen so far, then object-like macros (evaluated lazily with a cycle guard).
func (p *Parser) lookupConstIdent(t *token.Token) (int64, error) {
	name := t.Value

	if v, ok := p.enumVals[name]; ok {
		return v, nil
	}
	if v, ok := p.defMemo[name]; ok {
		return v, nil
	}
	if body, ok := p.defIndex[name]; ok {
		if p.evaluating[name] {
			return 0, errors.Parse(t.File, t.Line, "recursive macro %q", name)
		}
		p.evaluating[name] = true
		defer delete(p.evaluating, name)

		ev := &exprEval{p: p, toks: body}
		v, err := ev.parseExpr(1)
		if err != nil {
			return 0, err
		}
		if ev.pos != len(body) {
			return 0, errors.Parse(t.File, t.Line, "macro %q is not an integer constant", name)
		}
		p.defMemo[name] = v
		return v, nil
	}
	if p.funcMacros[name] {
		return 0, errors.New(errors.PhaseParse, errors.KindUnsupported).
			Location(t.File, t.Line).
			Detail("function-like macro %q cannot be reduced to a constant", name).
			Build()
	}
	return 0, errors.Parse(t.File, t.Line, "unknown constant %q", name)
}

// evalDefine classifies a macro body as a literal constant. Bodies that are
// not constants (token pastes, casts, expressions over unknown names) are
// skipped, not errors: headers carry plenty of macros that are not part of
// the bridgeable surface.
func (p *Parser) evalDefine(d pp.Define) (*cdecl.ConstDecl, bool) {
	loc := cdecl.Location{Header: d.File, Line: d.Line}
	toks := d.Tokens

	// Unwrap ((...)) so parenthesized floats and strings classify too.
	for len(toks) >= 3 && toks[0].Type == token.LParen && toks[len(toks)-1].Type == token.RParen && balanced(toks[1:len(toks)-1]) {
		toks = toks[1 : len(toks)-1]
	}
	if len(toks) == 0 {
		return nil, false
	}

	if len(toks) == 1 && toks[0].Type == token.CharLit {
		v, err := charValue(d.File, d.Line, toks[0].Value)
		if err != nil {
			return nil, false
		}
		return &cdecl.ConstDecl{Name: d.Name, Kind: cdecl.ConstChar, Int: v, Loc: loc}, true
	}
	if len(toks) == 1 && toks[0].Type == token.String {
		return &cdecl.ConstDecl{Name: d.Name, Kind: cdecl.ConstString, Str: toks[0].Value, Loc: loc}, true
	}

	// Integer expression over known constants.
	ev := &exprEval{p: p, toks: toks}
	if v, err := ev.parseExpr(1); err == nil && ev.pos == len(toks) {
		return &cdecl.ConstDecl{Name: d.Name, Kind: cdecl.ConstInt, Int: v, Loc: loc}, true
	}

	// Floating literal, optionally signed.
	ftoks := toks
	sign := 1.0
	if len(ftoks) == 2 && ftoks[0].Type == token.Op && (ftoks[0].Value == "-" || ftoks[0].Value == "+") {
		if ftoks[0].Value == "-" {
			sign = -1
		}
		ftoks = ftoks[1:]
	}
	if len(ftoks) == 1 && ftoks[0].Type == token.Number {
		if f, err := parseCFloat(ftoks[0].Value); err == nil {
			return &cdecl.ConstDecl{Name: d.Name, Kind: cdecl.ConstFloat, Float: sign * f, Loc: loc}, true
		}
	}

	return nil, false
}

func balanced(toks []token.Token) bool {
	depth := 0
	for _, t := range toks {
		switch t.Type {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// parseCInt parses a C integer literal: decimal, octal, hex, with u/l
// suffixes in any order.
func parseCInt(s string) (int64, error) {
	trimmed := strings.TrimRight(s, "uUlL")
	if trimmed == "" {
		return 0, strconv.ErrSyntax
	}
	if v, err := strconv.ParseInt(trimmed, 0, 64); err == nil {
		return v, nil
	}
	// Large unsigned literals such as 0xFFFFFFFFFFFFFFFF.
	u, err := strconv.ParseUint(trimmed, 0, 64)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// parseCFloat parses a C floating literal, tolerating f/F/l/L suffixes.
func parseCFloat(s string) (float64, error) {
	trimmed := strings.TrimRight(s, "fFlL")
	if trimmed == "" || !strings.ContainsAny(trimmed, ".eEpP") {
		// A bare integer is not a float constant; the integer path owns it.
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(trimmed, 64)
}

// charValue decodes a C character literal body (quotes already stripped).
func charValue(file string, line int, body string) (int64, error) {
	if body == "" {
		return 0, errors.Parse(file, line, "empty character literal")
	}
	if body[0] != '\\' {
		r := []rune(body)
		if len(r) != 1 {
			return 0, errors.Parse(file, line, "multi-character literal %q", body)
		}
		return int64(r[0]), nil
	}

	esc := body[1:]
	switch esc {
	case "n":
		return '\n', nil
	case "t":
		return '\t', nil
	case "r":
		return '\r', nil
	case "0":
		return 0, nil
	case "a":
		return 7, nil
	case "b":
		return 8, nil
	case "f":
		return 12, nil
	case "v":
		return 11, nil
	case "\\":
		return '\\', nil
	case "'":
		return '\'', nil
	case "\"":
		return '"', nil
	}
	if len(esc) > 1 && (esc[0] == 'x' || esc[0] == 'X') {
		v, err := strconv.ParseInt(esc[1:], 16, 64)
		if err != nil {
			return 0, errors.Parse(file, line, "bad hex escape %q", body)
		}
		return v, nil
	}
	if v, err := strconv.ParseInt(esc, 8, 64); err == nil {
		return v, nil
	}
	return 0, errors.Parse(file, line, "unknown escape %q", body)
}
