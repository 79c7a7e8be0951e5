package typemap

// Classification tells the marshaling layer how values of a type cross the
// boundary.
type Classification uint8

const (
	// ScalarAutoConvert values convert transparently because the binary
	// representation already matches: numeric scalars, enums, and structs
	// passed by value.
	ScalarAutoConvert Classification = iota

	// StringAutoConvert marks char pointers. Go strings copy into owned
	// NUL-terminated buffers without an explicit conversion step.
	StringAutoConvert

	// NeedsExplicitConversion marks a binding that is rejected until the
	// caller converts the value in a scope, such as a []byte offered to a
	// bare pointer parameter.
	NeedsExplicitConversion

	// OpaqueHandle marks pointers that cross as-is and are never read or
	// written by the bridge.
	OpaqueHandle
)

var classificationNames = [...]string{
	ScalarAutoConvert:       "scalar_auto_convert",
	StringAutoConvert:       "string_auto_convert",
	NeedsExplicitConversion: "needs_explicit_conversion",
	OpaqueHandle:            "opaque_handle",
}

func (c Classification) String() string {
	if int(c) < len(classificationNames) {
		return classificationNames[c]
	}
	return "unknown"
}
