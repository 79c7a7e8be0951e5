package typemap

import (
	"fmt"

	"github.com/wippyai/ffi-bridge/cdecl"
)

// Platform describes one target data model. Every layout and spelling
// decision reads these fields; nothing about a target is hardcoded in the
// mapper itself.
type Platform struct {
	Name   string
	GOOS   string
	GOARCH string

	PtrSize        uint32
	LongSize       uint32
	SizeTSize      uint32
	WCharSize      uint32
	LongDoubleSize uint32
	Int64Align     uint32

	WCharSigned bool
	CharSigned  bool

	// MSVC selects the MSVC bit-field allocation scheme.
	MSVC bool
}

var (
	// LinuxAMD64 is the LP64 model shared by the mainstream Linux toolchains.
	LinuxAMD64 = Platform{
		Name: "linux-amd64", GOOS: "linux", GOARCH: "amd64",
		PtrSize: 8, LongSize: 8, SizeTSize: 8,
		WCharSize: 4, WCharSigned: true, CharSigned: true,
		LongDoubleSize: 16, Int64Align: 8,
	}

	// DarwinARM64 is LP64 too, but long double is plain double on Apple
	// silicon, so it stays mappable there.
	DarwinARM64 = Platform{
		Name: "darwin-arm64", GOOS: "darwin", GOARCH: "arm64",
		PtrSize: 8, LongSize: 8, SizeTSize: 8,
		WCharSize: 4, WCharSigned: true, CharSigned: true,
		LongDoubleSize: 8, Int64Align: 8,
	}

	// WindowsAMD64 is LLP64: long stays 4 bytes and wchar_t is UTF-16.
	WindowsAMD64 = Platform{
		Name: "windows-amd64", GOOS: "windows", GOARCH: "amd64",
		PtrSize: 8, LongSize: 4, SizeTSize: 8,
		WCharSize: 2, WCharSigned: false, CharSigned: true,
		LongDoubleSize: 8, Int64Align: 8, MSVC: true,
	}

	// Wasm32 is ILP32 with 8-byte alignment for 64-bit scalars.
	Wasm32 = Platform{
		Name: "wasm32", GOOS: "wasip1", GOARCH: "wasm",
		PtrSize: 4, LongSize: 4, SizeTSize: 4,
		WCharSize: 4, WCharSigned: true, CharSigned: true,
		LongDoubleSize: 16, Int64Align: 8,
	}
)

// Platforms returns the supported targets in a fixed order.
func Platforms() []Platform {
	return []Platform{LinuxAMD64, DarwinARM64, WindowsAMD64, Wasm32}
}

// ByName finds a platform by its table name, such as "linux-amd64".
func ByName(name string) (Platform, bool) {
	for _, p := range Platforms() {
		if p.Name == name {
			return p, true
		}
	}
	return Platform{}, false
}

// Primitive returns the size and alignment of a scalar under this model.
// ok is false when the model has no representation for it, which on LP64
// Linux and wasm32 is the case for the 16-byte long double.
func (p Platform) Primitive(prim cdecl.Primitive) (size, align uint32, ok bool) {
	switch prim {
	case cdecl.Bool, cdecl.Char, cdecl.SChar, cdecl.UChar, cdecl.Int8, cdecl.Uint8:
		return 1, 1, true
	case cdecl.Short, cdecl.UShort, cdecl.Int16, cdecl.Uint16:
		return 2, 2, true
	case cdecl.Int, cdecl.UInt, cdecl.Int32, cdecl.Uint32:
		return 4, 4, true
	case cdecl.Long, cdecl.ULong:
		if p.LongSize == 8 {
			return 8, p.Int64Align, true
		}
		return 4, 4, true
	case cdecl.LongLong, cdecl.ULongLong, cdecl.Int64, cdecl.Uint64:
		return 8, p.Int64Align, true
	case cdecl.Float:
		return 4, 4, true
	case cdecl.Double:
		return 8, p.Int64Align, true
	case cdecl.LongDouble:
		if p.LongDoubleSize == 8 {
			return 8, p.Int64Align, true
		}
		return 0, 0, false
	case cdecl.Size, cdecl.PtrDiff, cdecl.IntPtrT, cdecl.UIntPtrT:
		if p.SizeTSize == 8 {
			return 8, p.Int64Align, true
		}
		return 4, 4, true
	case cdecl.WChar:
		return p.WCharSize, p.WCharSize, true
	}
	return 0, 0, false
}

// Pointer returns the size and alignment shared by all pointer types.
func (p Platform) Pointer() (size, align uint32) {
	return p.PtrSize, p.PtrSize
}

// MSBitFields reports whether bit-fields follow the MSVC allocation scheme.
func (p Platform) MSBitFields() bool {
	return p.MSVC
}

// GoScalar returns the Go type spelling of a scalar under this model.
func (p Platform) GoScalar(prim cdecl.Primitive) (string, bool) {
	switch prim {
	case cdecl.Bool:
		return "bool", true
	case cdecl.Char:
		if p.CharSigned {
			return "int8", true
		}
		return "uint8", true
	case cdecl.SChar, cdecl.Int8:
		return "int8", true
	case cdecl.UChar, cdecl.Uint8:
		return "uint8", true
	case cdecl.Short, cdecl.Int16:
		return "int16", true
	case cdecl.UShort, cdecl.Uint16:
		return "uint16", true
	case cdecl.Int, cdecl.Int32:
		return "int32", true
	case cdecl.UInt, cdecl.Uint32:
		return "uint32", true
	case cdecl.Long:
		if p.LongSize == 8 {
			return "int64", true
		}
		return "int32", true
	case cdecl.ULong:
		if p.LongSize == 8 {
			return "uint64", true
		}
		return "uint32", true
	case cdecl.LongLong, cdecl.Int64:
		return "int64", true
	case cdecl.ULongLong, cdecl.Uint64:
		return "uint64", true
	case cdecl.Float:
		return "float32", true
	case cdecl.Double:
		return "float64", true
	case cdecl.LongDouble:
		if p.LongDoubleSize == 8 {
			return "float64", true
		}
		return "", false
	case cdecl.Size, cdecl.UIntPtrT:
		if p.SizeTSize == 8 {
			return "uint64", true
		}
		return "uint32", true
	case cdecl.PtrDiff, cdecl.IntPtrT:
		if p.SizeTSize == 8 {
			return "int64", true
		}
		return "int32", true
	case cdecl.WChar:
		return intName(p.WCharSize, p.WCharSigned), true
	}
	return "", false
}

func intName(size uint32, signed bool) string {
	if signed {
		return fmt.Sprintf("int%d", size*8)
	}
	return fmt.Sprintf("uint%d", size*8)
}

// uintDesc returns the unsigned libffi descriptor matching a storage size.
func uintDesc(size uint32) string {
	return ffiByGo[intName(size, false)]
}

// ffiByGo spells the libffi descriptor for each Go scalar type.
var ffiByGo = map[string]string{
	"bool":    "&ffi.TypeUint8",
	"int8":    "&ffi.TypeSint8",
	"uint8":   "&ffi.TypeUint8",
	"int16":   "&ffi.TypeSint16",
	"uint16":  "&ffi.TypeUint16",
	"int32":   "&ffi.TypeSint32",
	"uint32":  "&ffi.TypeUint32",
	"int64":   "&ffi.TypeSint64",
	"uint64":  "&ffi.TypeUint64",
	"float32": "&ffi.TypeFloat",
	"float64": "&ffi.TypeDouble",
}
