package linker

// StaticLibrary carries an explicit symbol list. It stands in for binaries
// during tests and lets build plans declare what a library will provide
// before it exists.
type StaticLibrary struct {
	name    string
	symbols []string
	mangled []string
}

// NewStaticLibrary returns a library providing exactly the given symbols.
func NewStaticLibrary(name string, symbols ...string) *StaticLibrary {
	return &StaticLibrary{name: name, symbols: symbols}
}

// WithMangled records C++-mangled exports alongside the plain symbols so
// resolution failures can hint at missing extern "C" declarations.
func (l *StaticLibrary) WithMangled(mangled ...string) *StaticLibrary {
	l.mangled = append(l.mangled, mangled...)
	return l
}

// Name returns the library name.
func (l *StaticLibrary) Name() string { return l.name }

// Symbols returns the declared symbols.
func (l *StaticLibrary) Symbols() ([]string, error) { return l.symbols, nil }

// Mangled returns the declared mangled exports.
func (l *StaticLibrary) Mangled() []string { return l.mangled }
