package pp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/ffi-bridge/cparse/internal/token"
	"github.com/wippyai/ffi-bridge/errors"
)

// Options configures an expansion run.
type Options struct {
	HeaderPaths  []string          // entry headers, processed in order
	IncludePaths []string          // search path for #include resolution
	Predefines   map[string]string // object-like macros defined up front
	Overlay      map[string][]byte // in-memory sources, consulted before disk
}

// Define is one object-like macro definition, body kept as tokens for the
// parser's constant evaluator.
type Define struct {
	Name   string
	Tokens []token.Token
	File   string
	Line   int
}

// Result is the flat outcome of directive processing: the token stream of
// every active declaration line, plus the macro tables.
type Result struct {
	Tokens     []token.Token
	Defines    []Define        // still-defined object-like macros, first-definition order
	FuncMacros map[string]bool // function-like macro names (definitions tolerated, uses are not)
}

// Standard library headers satisfied intrinsically: their contribution is the
// primitive spellings the tokenizer and parser already know.
var builtinHeaders = map[string]bool{
	"assert.h": true, "ctype.h": true, "errno.h": true, "float.h": true,
	"inttypes.h": true, "iso646.h": true, "limits.h": true, "locale.h": true,
	"math.h": true, "setjmp.h": true, "signal.h": true, "stdalign.h": true,
	"stdarg.h": true, "stdbool.h": true, "stddef.h": true, "stdint.h": true,
	"stdio.h": true, "stdlib.h": true, "string.h": true, "time.h": true,
	"uchar.h": true, "wchar.h": true, "wctype.h": true,
}

type cond struct {
	parent   bool // enclosing context active
	live     bool // this branch currently active
	taken    bool // some branch of this chain already matched
	seenElse bool
}

type expander struct {
	includePaths []string
	overlay      map[string][]byte
	defines      map[string][]token.Token
	funcMacros   map[string]bool
	order        []Define
	once         map[string]bool
	opened       []string
	conds        []cond
	tokens       []token.Token
}

// Expand runs the directive subset over the entry headers and returns the
// flattened token stream.
func Expand(opts Options) (*Result, error) {
	e := &expander{
		includePaths: opts.IncludePaths,
		overlay:      opts.Overlay,
		defines:      make(map[string][]token.Token),
		funcMacros:   make(map[string]bool),
		once:         make(map[string]bool),
	}

	for _, kv := range sortedPredefines(opts.Predefines) {
		body, err := token.TokenizeLine("<command line>", 0, kv.value)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindSyntax, err, "predefine "+kv.name)
		}
		e.defines[kv.name] = body
		e.order = append(e.order, Define{Name: kv.name, Tokens: body, File: "<command line>"})
	}

	for _, path := range opts.HeaderPaths {
		if err := e.file(path, "", 0); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Tokens:     e.tokens,
		FuncMacros: e.funcMacros,
	}
	for _, d := range e.order {
		if body, ok := e.defines[d.Name]; ok && len(body) > 0 {
			res.Defines = append(res.Defines, Define{Name: d.Name, Tokens: body, File: d.File, Line: d.Line})
		}
	}
	return res, nil
}

type predefine struct{ name, value string }

// sortedPredefines fixes an iteration order so identical option maps always
// produce identical streams.
func sortedPredefines(m map[string]string) []predefine {
	var out []predefine
	for name, value := range m {
		out = append(out, predefine{name, value})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].name > out[j].name; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (e *expander) active() bool {
	for _, c := range e.conds {
		if !c.live {
			return false
		}
	}
	return true
}

func (e *expander) read(path string) ([]byte, error) {
	if e.overlay != nil {
		if src, ok := e.overlay[path]; ok {
			return src, nil
		}
	}
	return os.ReadFile(path)
}

// resolve finds the file an include names. Quoted includes search the
// including file's directory first; angle includes only the include paths.
func (e *expander) resolve(name string, quoted bool, from string) (string, bool) {
	try := func(p string) (string, bool) {
		if e.overlay != nil {
			if _, ok := e.overlay[p]; ok {
				return p, true
			}
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
		return "", false
	}

	if e.overlay != nil {
		if _, ok := e.overlay[name]; ok {
			return name, true
		}
	}
	if quoted && from != "" {
		if p, ok := try(filepath.Join(filepath.Dir(from), name)); ok {
			return p, true
		}
	}
	for _, dir := range e.includePaths {
		if p, ok := try(filepath.Join(dir, name)); ok {
			return p, true
		}
	}
	return "", false
}

func (e *expander) file(path, from string, fromLine int) error {
	if e.once[path] {
		return nil
	}
	for _, open := range e.opened {
		if open == path {
			return errors.Parse(from, fromLine, "include cycle through %q", path)
		}
	}
	e.opened = append(e.opened, path)
	defer func() { e.opened = e.opened[:len(e.opened)-1] }()

	src, err := e.read(path)
	if err != nil {
		return errors.Load("read header "+path, err)
	}

	depth := len(e.conds)
	lines := logicalLines(stripComments(string(src)))
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if strings.HasPrefix(trimmed, "#") {
			if err := e.directive(path, ln.num, strings.TrimSpace(trimmed[1:])); err != nil {
				return err
			}
			continue
		}
		if !e.active() || trimmed == "" {
			continue
		}
		toks, err := token.TokenizeLine(path, ln.num, ln.text)
		if err != nil {
			return errors.Wrap(errors.PhaseParse, errors.KindSyntax, err, "tokenize")
		}
		e.tokens = append(e.tokens, toks...)
	}

	if len(e.conds) != depth {
		last := 0
		if len(lines) > 0 {
			last = lines[len(lines)-1].num
		}
		return errors.Parse(path, last, "unterminated conditional")
	}
	return nil
}

func (e *expander) directive(file string, line int, text string) error {
	name := text
	rest := ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		name = text[:i]
		rest = strings.TrimSpace(text[i:])
	}

	switch name {
	case "ifdef", "ifndef":
		parent := e.active()
		if rest == "" {
			return errors.Parse(file, line, "#%s without a name", name)
		}
		macro := firstWord(rest)
		_, obj := e.defines[macro]
		defined := obj || e.funcMacros[macro]
		want := defined
		if name == "ifndef" {
			want = !defined
		}
		e.conds = append(e.conds, cond{parent: parent, live: parent && want, taken: want})
		return nil

	case "else":
		if len(e.conds) == 0 {
			return errors.Parse(file, line, "#else without #ifdef")
		}
		c := &e.conds[len(e.conds)-1]
		if c.seenElse {
			return errors.Parse(file, line, "#else after #else")
		}
		c.live = c.parent && !c.taken
		c.taken = true
		c.seenElse = true
		return nil

	case "endif":
		if len(e.conds) == 0 {
			return errors.Parse(file, line, "#endif without #ifdef")
		}
		e.conds = e.conds[:len(e.conds)-1]
		return nil

	case "if":
		// Full preprocessor expressions need an external preprocessor run.
		// Inside an inactive region we only track nesting.
		if !e.active() {
			e.conds = append(e.conds, cond{parent: false, live: false, taken: true})
			return nil
		}
		return errors.Unsupported(errors.PhaseParse, "#if expression at "+file+": use #ifdef/#ifndef or preprocess first")

	case "elif":
		if len(e.conds) == 0 {
			return errors.Parse(file, line, "#elif without #ifdef")
		}
		c := &e.conds[len(e.conds)-1]
		if c.seenElse {
			return errors.Parse(file, line, "#elif after #else")
		}
		if c.parent && !c.taken {
			// The branch is reachable and the expression cannot be evaluated.
			return errors.Unsupported(errors.PhaseParse, "#elif expression at "+file+": use #ifdef/#ifndef or preprocess first")
		}
		c.live = false
		return nil

	case "include":
		if !e.active() {
			return nil
		}
		return e.include(file, line, rest)

	case "define":
		if !e.active() {
			return nil
		}
		return e.define(file, line, rest)

	case "undef":
		if !e.active() {
			return nil
		}
		macro := firstWord(rest)
		delete(e.defines, macro)
		delete(e.funcMacros, macro)
		return nil

	case "pragma":
		if !e.active() {
			return nil
		}
		switch firstWord(rest) {
		case "once":
			e.once[file] = true
			return nil
		case "pack":
			return errors.Unsupported(errors.PhaseParse, "#pragma pack changes layout and cannot be bridged ("+file+")")
		default:
			return nil
		}

	case "error":
		if !e.active() {
			return nil
		}
		return errors.Parse(file, line, "#error %s", rest)

	case "warning":
		return nil

	default:
		if !e.active() {
			return nil
		}
		return errors.Unsupported(errors.PhaseParse, "#"+name+" directive at "+file)
	}
}

func (e *expander) include(file string, line int, rest string) error {
	var name string
	var quoted bool
	switch {
	case strings.HasPrefix(rest, "\""):
		end := strings.Index(rest[1:], "\"")
		if end < 0 {
			return errors.Parse(file, line, "malformed #include")
		}
		name = rest[1 : 1+end]
		quoted = true
	case strings.HasPrefix(rest, "<"):
		end := strings.Index(rest, ">")
		if end < 0 {
			return errors.Parse(file, line, "malformed #include")
		}
		name = rest[1:end]
	default:
		return errors.Parse(file, line, "malformed #include")
	}

	if builtinHeaders[name] {
		return nil
	}

	path, ok := e.resolve(name, quoted, file)
	if !ok {
		return errors.New(errors.PhaseLoad, errors.KindNotFound).
			Location(file, line).
			Detail("include %q not found", name).
			Build()
	}
	return e.file(path, file, line)
}

func (e *expander) define(file string, line int, rest string) error {
	if rest == "" {
		return errors.Parse(file, line, "#define without a name")
	}

	nameEnd := 0
	for nameEnd < len(rest) && (isIdentRune(rune(rest[nameEnd]), nameEnd == 0)) {
		nameEnd++
	}
	if nameEnd == 0 {
		return errors.Parse(file, line, "malformed #define")
	}
	name := rest[:nameEnd]

	// A '(' immediately after the name makes it function-like. Definitions
	// are tolerated; uses inside declarations are rejected by the parser.
	if nameEnd < len(rest) && rest[nameEnd] == '(' {
		e.funcMacros[name] = true
		delete(e.defines, name)
		return nil
	}

	body, err := token.TokenizeLine(file, line, strings.TrimSpace(rest[nameEnd:]))
	if err != nil {
		return errors.Wrap(errors.PhaseParse, errors.KindSyntax, err, "macro body")
	}
	if _, seen := e.defines[name]; !seen {
		e.order = append(e.order, Define{Name: name, Tokens: body, File: file, Line: line})
	} else {
		for i := range e.order {
			if e.order[i].Name == name {
				e.order[i].Tokens = body
				break
			}
		}
	}
	e.defines[name] = body
	delete(e.funcMacros, name)
	return nil
}

func firstWord(s string) string {
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return s[:i]
		}
	}
	return s
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	return !first && r >= '0' && r <= '9'
}
