package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the translation pipeline the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // header parsing
	PhaseMap     Phase = "map"     // type mapping and layout
	PhaseEmit    Phase = "emit"    // declaration emission
	PhaseMarshal Phase = "marshal" // call-boundary conversion
	PhaseLink    Phase = "link"    // symbol resolution
	PhaseLoad    Phase = "load"    // library/header loading
	PhaseRuntime Phase = "runtime" // runtime operations
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax           Kind = "syntax"
	KindUnsupported      Kind = "unsupported"
	KindUnmappableType   Kind = "unmappable_type"
	KindTypeMismatch     Kind = "type_mismatch"
	KindUnresolvedSymbol Kind = "unresolved_symbol"
	KindInvalidData      Kind = "invalid_data"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindOverflow         Kind = "overflow"
	KindAllocation       Kind = "allocation"
	KindNilPointer       Kind = "nil_pointer"
	KindIO               Kind = "io"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	CType   string
	Detail  string
	Path    []string
	Header  string
	Line    int
	Symbol  string
	Library string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	} else if e.Header != "" {
		b.WriteString(" at ")
		b.WriteString(e.Header)
		if e.Line > 0 {
			b.WriteString(fmt.Sprintf(":%d", e.Line))
		}
	}

	if e.GoType != "" || e.CType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.CType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", C type ")
			b.WriteString(e.CType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("C type ")
			b.WriteString(e.CType)
		}
	}

	if e.Symbol != "" {
		b.WriteString(": symbol ")
		b.WriteString(fmt.Sprintf("%q", e.Symbol))
		if e.Library != "" {
			b.WriteString(" in ")
			b.WriteString(e.Library)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.CType != "" || e.Symbol != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the declaration path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Location sets the header file and line the error points at
func (b *Builder) Location(header string, line int) *Builder {
	b.err.Header = header
	b.err.Line = line
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// CType sets the C type spelling
func (b *Builder) CType(t string) *Builder {
	b.err.CType = t
	return b
}

// Symbol sets the native symbol name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Library sets the library the error refers to
func (b *Builder) Library(name string) *Builder {
	b.err.Library = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Parse creates a syntax error pointing at a header location
func Parse(header string, line int, reason string, args ...any) *Error {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Header: header,
		Line:   line,
		Detail: reason,
	}
}

// UnmappableType creates an error for a C type with no host equivalent
func UnmappableType(cType, reason string) *Error {
	return &Error{
		Phase:  PhaseMap,
		Kind:   KindUnmappableType,
		CType:  cType,
		Detail: reason,
	}
}

// TypeMismatch creates a call-boundary type mismatch error
func TypeMismatch(path []string, goType, cType string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		CType:  cType,
	}
}

// UnresolvedSymbol creates an error for a symbol no library provides
func UnresolvedSymbol(symbol, library string) *Error {
	return &Error{
		Phase:   PhaseLink,
		Kind:    KindUnresolvedSymbol,
		Symbol:  symbol,
		Library: library,
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Conflict creates an error for redefinition of an existing name
func Conflict(header string, line int, what, name string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindConflict,
		Header: header,
		Line:   line,
		Detail: fmt.Sprintf("%s %q redefined with a different shape", what, name),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a file loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// UnresolvedSymbolsError is returned when link resolution fails for one or
// more symbols across every provided library
type UnresolvedSymbolsError struct {
	Symbols  []string // manifest symbols with no provider
	Searched []string // library names consulted, in search order
	Mangled  []string // mangled C++ exports that demangle to a missing symbol
}

// NewUnresolvedSymbolsError creates an error from the missing symbol list
func NewUnresolvedSymbolsError(symbols, searched []string) *UnresolvedSymbolsError {
	return &UnresolvedSymbolsError{
		Symbols:  symbols,
		Searched: searched,
	}
}

func (e *UnresolvedSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[link] unresolved_symbol: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d native symbol(s):\n", len(e.Symbols)))
	for _, sym := range e.Symbols {
		b.WriteString("  - ")
		b.WriteString(sym)
		b.WriteByte('\n')
	}
	if len(e.Searched) > 0 {
		b.WriteString("searched: ")
		b.WriteString(strings.Join(e.Searched, ", "))
		b.WriteByte('\n')
	}
	for _, m := range e.Mangled {
		b.WriteString(fmt.Sprintf("note: export %q demangles to %q; missing extern \"C\" on the native side?\n", m, DemangleCXX(m)))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *UnresolvedSymbolsError) Is(target error) bool {
	_, ok := target.(*UnresolvedSymbolsError)
	return ok
}

// DemangleCXX extracts the readable path from an Itanium-mangled nested name.
// C libraries built as C++ without extern "C" export these instead of the
// plain names a header promises; the linker uses this for its hint output.
func DemangleCXX(name string) string {
	// Itanium nested names start with _ZN
	if !strings.HasPrefix(name, "_ZN") {
		return name
	}

	// Format: _ZN<len><name><len><name>...E<args>
	s := name[3:]
	var parts []string

	for len(s) > 0 && s[0] != 'E' {
		lenEnd := 0
		for lenEnd < len(s) && s[lenEnd] >= '0' && s[lenEnd] <= '9' {
			lenEnd++
		}
		if lenEnd == 0 {
			break
		}

		length := 0
		for i := 0; i < lenEnd; i++ {
			length = length*10 + int(s[i]-'0')
		}
		s = s[lenEnd:]

		if length > len(s) {
			break
		}

		parts = append(parts, s[:length])
		s = s[length:]
	}

	if len(parts) == 0 {
		return name
	}

	return strings.Join(parts, "::")
}
