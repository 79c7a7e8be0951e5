package emit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/typemap"
)

// retKind selects the wrapper's return strategy. libffi widens integral
// returns smaller than a register to ffi_arg, and struct returns always
// get at least a register of buffer space, so sub-register cases need
// intermediate storage.
type retKind uint8

const (
	retVoid retKind = iota
	retString
	retWidened     // integral narrower than 8 bytes, read back through ffi.Arg
	retSmallStruct // struct narrower than 8 bytes, read back through a word buffer
	retDirect
)

func (g *generator) retKindOf(ti typemap.TypeInfo) retKind {
	switch {
	case ti.Go == "":
		return retVoid
	case ti.Class == typemap.StringAutoConvert:
		return retString
	case strings.HasPrefix(ti.FFI, "&FFIType"):
		if ti.Size < 8 {
			return retSmallStruct
		}
		return retDirect
	case ti.Class == typemap.ScalarAutoConvert && ti.Size < 8 && g.isIntegral(ti.C):
		return retWidened
	default:
		return retDirect
	}
}

// isIntegral reports whether the C type resolves to an integer, boolean or
// enum. Floats return in floating registers and keep their exact width.
func (g *generator) isIntegral(t cdecl.Type) bool {
	r, ok := g.m.Graph.Resolve(t)
	if !ok {
		return false
	}
	switch r.Kind {
	case cdecl.TypeEnumRef:
		return true
	case cdecl.TypePrim:
		switch r.Prim {
		case cdecl.Float, cdecl.Double, cdecl.LongDouble, cdecl.Void:
			return false
		}
		return true
	}
	return false
}

func (g *generator) isBool(t cdecl.Type) bool {
	r, ok := g.m.Graph.Resolve(t)
	if !ok {
		return false
	}
	return r.Kind == cdecl.TypePrim && r.Prim == cdecl.Bool
}

// functionsFile renders the ffi.Fun variables, loadFuncs, one wrapper per
// bound function, and Close methods for detected factories.
func (g *generator) functionsFile(factories []Factory) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "package %s\n\n", g.pkg)

	if len(g.bind) == 0 {
		fmt.Fprintf(&b, "func loadFuncs() error {\n\treturn nil\n}\n")
		return b.Bytes()
	}

	needUnsafe, needUnix := g.importNeeds()
	fmt.Fprintf(&b, "import (\n")
	fmt.Fprintf(&b, "\t\"fmt\"\n")
	if needUnsafe {
		fmt.Fprintf(&b, "\t\"unsafe\"\n")
	}
	fmt.Fprintf(&b, "\n\t\"github.com/jupiterrider/ffi\"\n")
	if needUnix {
		fmt.Fprintf(&b, "\t\"golang.org/x/sys/unix\"\n")
	}
	fmt.Fprintf(&b, ")\n\n")

	fmt.Fprintf(&b, "var (\n")
	for _, fi := range g.bind {
		fmt.Fprintf(&b, "\t%s ffi.Fun\n", funcVar(fi))
	}
	fmt.Fprintf(&b, ")\n\n")

	g.loadFuncs(&b)

	for _, fi := range g.bind {
		g.wrapper(&b, fi)
	}
	for _, f := range factories {
		fmt.Fprintf(&b, "// Close releases the handle through %s.\n", f.Release)
		fmt.Fprintf(&b, "func (h %s) Close() {\n\t%s(h)\n}\n\n", f.Handle, f.Release)
	}

	return b.Bytes()
}

func (g *generator) importNeeds() (needUnsafe, needUnix bool) {
	for _, fi := range g.bind {
		if g.retKindOf(fi.Ret) != retVoid {
			needUnsafe = true
		}
		if fi.Ret.Class == typemap.StringAutoConvert {
			needUnix = true
		}
		for _, p := range fi.Params {
			if p.Info.Class == typemap.StringAutoConvert {
				needUnix = true
				needUnsafe = true
			} else if !strings.HasPrefix(p.Info.FFI, "&FFIType") {
				needUnsafe = true
			}
		}
	}
	return needUnsafe, needUnix
}

func (g *generator) loadFuncs(b *bytes.Buffer) {
	fmt.Fprintf(b, "func loadFuncs() error {\n")
	fmt.Fprintf(b, "\tvar err error\n\n")
	for _, fi := range g.bind {
		args := []string{fmt.Sprintf("%q", fi.Decl.Name), fi.Ret.FFI}
		for _, p := range fi.Params {
			args = append(args, p.Info.FFI)
		}
		fmt.Fprintf(b, "\tif %s, err = lib.Prep(%s); err != nil {\n", funcVar(fi), strings.Join(args, ", "))
		fmt.Fprintf(b, "\t\treturn fmt.Errorf(\"%s: %%w\", err)\n", fi.Decl.Name)
		fmt.Fprintf(b, "\t}\n\n")
	}
	fmt.Fprintf(b, "\treturn nil\n}\n\n")
}

func (g *generator) wrapper(b *bytes.Buffer, fi *typemap.FuncInfo) {
	names := paramNames(fi)
	kind := g.retKindOf(fi.Ret)

	decl := make([]string, len(fi.Params))
	for i, p := range fi.Params {
		decl[i] = names[i] + " " + wrapperType(p.Info)
	}
	if retGo := wrapperType(fi.Ret); retGo != "" {
		fmt.Fprintf(b, "func %s(%s) %s {\n", fi.GoName, strings.Join(decl, ", "), retGo)
	} else {
		fmt.Fprintf(b, "func %s(%s) {\n", fi.GoName, strings.Join(decl, ", "))
	}

	for i, p := range fi.Params {
		if p.Info.Class == typemap.StringAutoConvert {
			fmt.Fprintf(b, "\t%sPtr, _ := unix.BytePtrFromString(%s)\n", names[i], names[i])
		}
	}

	switch kind {
	case retVoid:
	case retString:
		fmt.Fprintf(b, "\tvar resultPtr *byte\n")
	case retWidened:
		fmt.Fprintf(b, "\tvar result ffi.Arg\n")
	case retSmallStruct:
		// libffi return buffers are at least register sized.
		fmt.Fprintf(b, "\tvar resultBuf [1]uint64\n")
	default:
		fmt.Fprintf(b, "\tvar result %s\n", fi.Ret.Go)
	}

	callArgs := make([]string, 0, len(fi.Params)+1)
	switch kind {
	case retVoid:
		callArgs = append(callArgs, "nil")
	case retString:
		callArgs = append(callArgs, "unsafe.Pointer(&resultPtr)")
	case retSmallStruct:
		callArgs = append(callArgs, "unsafe.Pointer(&resultBuf)")
	default:
		callArgs = append(callArgs, "unsafe.Pointer(&result)")
	}
	for i, p := range fi.Params {
		switch {
		case p.Info.Class == typemap.StringAutoConvert:
			callArgs = append(callArgs, fmt.Sprintf("unsafe.Pointer(&%sPtr)", names[i]))
		case strings.HasPrefix(p.Info.FFI, "&FFIType"):
			callArgs = append(callArgs, "&"+names[i])
		default:
			callArgs = append(callArgs, fmt.Sprintf("unsafe.Pointer(&%s)", names[i]))
		}
	}
	fmt.Fprintf(b, "\t%s.Call(%s)\n", funcVar(fi), strings.Join(callArgs, ", "))

	switch kind {
	case retVoid:
	case retString:
		fmt.Fprintf(b, "\tif resultPtr == nil {\n\t\treturn \"\"\n\t}\n")
		fmt.Fprintf(b, "\treturn unix.BytePtrToString(resultPtr)\n")
	case retWidened:
		if g.isBool(fi.Ret.C) {
			fmt.Fprintf(b, "\treturn result.Bool()\n")
		} else {
			fmt.Fprintf(b, "\treturn %s(result)\n", fi.Ret.Go)
		}
	case retSmallStruct:
		fmt.Fprintf(b, "\treturn *(*%s)(unsafe.Pointer(&resultBuf))\n", fi.Ret.Go)
	default:
		fmt.Fprintf(b, "\treturn result\n")
	}
	fmt.Fprintf(b, "}\n\n")
}

// wrapperType is the Go surface type of a parameter or return. Strings
// cross as Go strings; everything else uses the mapped spelling.
func wrapperType(ti typemap.TypeInfo) string {
	if ti.Class == typemap.StringAutoConvert {
		return "string"
	}
	return ti.Go
}

func funcVar(fi *typemap.FuncInfo) string {
	return lowerCamel(fi.GoName) + "Func"
}

func lowerCamel(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// paramNames derives wrapper parameter names from the prototype, replacing
// anything unusable (missing, keyword, or colliding with wrapper locals)
// with a positional name.
func paramNames(fi *typemap.FuncInfo) []string {
	names := make([]string, len(fi.Params))
	seen := map[string]bool{
		"result": true, "resultPtr": true, "resultBuf": true,
		"err": true, "lib": true,
	}
	for i, p := range fi.Params {
		n := ""
		if p.Name != "" {
			n = lowerCamel(typemap.GoName(p.Name))
		}
		if n == "" || goKeywords[n] || seen[n] {
			n = fmt.Sprintf("arg%d", i)
		}
		seen[n] = true
		seen[n+"Ptr"] = true
		names[i] = n
	}
	return names
}
