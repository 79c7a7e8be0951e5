package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/cdecl"
	"github.com/wippyai/ffi-bridge/cparse"
	"github.com/wippyai/ffi-bridge/translate"
	"github.com/wippyai/ffi-bridge/typemap"
)

func parseAndMap(req translate.Request, p typemap.Platform) (*typemap.Mapped, error) {
	g, err := cparse.Parse(cparse.Options{
		HeaderPaths:  req.HeaderPaths,
		IncludePaths: req.IncludePaths,
		Defines:      req.Defines,
		Sources:      req.Sources,
	})
	if err != nil {
		return nil, err
	}
	return typemap.Map(g, p)
}

func funcSignature(fi *typemap.FuncInfo) string {
	var parts []string
	for _, p := range fi.Params {
		name := p.Name
		if name == "" {
			name = "_"
		}
		parts = append(parts, name+": "+p.Info.C.String())
	}
	if fi.Variadic {
		parts = append(parts, "...")
	}
	sig := fi.Decl.Name + "(" + strings.Join(parts, ", ") + ")"
	if fi.Ret.Go != "" {
		sig += " -> " + fi.Ret.C.String()
	}
	return sig
}

func funcDetail(fi *typemap.FuncInfo) []string {
	lines := []string{funcSignature(fi), ""}
	for _, p := range fi.Params {
		name := p.Name
		if name == "" {
			name = "_"
		}
		lines = append(lines, fmt.Sprintf("  %-14s %-18s %-12s %s",
			name, p.Info.C.String(), p.Info.Go, p.Info.Class))
	}
	if fi.Ret.Go != "" {
		lines = append(lines, fmt.Sprintf("  %-14s %-18s %-12s %s",
			"returns", fi.Ret.C.String(), fi.Ret.Go, fi.Ret.Class))
	}
	if fi.Variadic {
		lines = append(lines, "", "  variadic: no binding is generated")
	}
	return lines
}

func structSummary(si *typemap.StructInfo) string {
	kind := "struct"
	if si.Union {
		kind = "union"
	}
	if si.Opaque {
		return fmt.Sprintf("%s %s  opaque handle", kind, si.Decl.Tag)
	}
	return fmt.Sprintf("%s %s  size %d  align %d", kind, si.Decl.Tag, si.Layout.Size, si.Layout.Align)
}

func structDetail(si *typemap.StructInfo) []string {
	lines := []string{structSummary(si) + "  -> " + si.GoName}
	if si.Opaque {
		return append(lines, "", "  incomplete type; values cross only behind a pointer")
	}
	lines = append(lines, "")
	for _, f := range si.GoFields {
		if f.Pad {
			lines = append(lines, fmt.Sprintf("  %-14s %-12s offset %-4d size %d",
				"(padding)", "", f.Offset, f.Size))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-14s %-12s offset %-4d size %d",
			f.Name, f.Go, f.Offset, f.Size))
		for _, b := range f.Bits {
			lines = append(lines, fmt.Sprintf("    .%-12s %-12s bits [%d:%d)",
				b.Name, b.Go, b.Shift, b.Shift+b.Width))
		}
	}
	return lines
}

func enumSummary(ei *typemap.EnumInfo) string {
	tag := ei.Decl.Tag
	if tag == "" {
		tag = strings.ToLower(ei.GoName)
	}
	return fmt.Sprintf("enum %s  %d values", tag, len(ei.Members))
}

func enumDetail(ei *typemap.EnumInfo) []string {
	lines := []string{enumSummary(ei) + "  -> " + ei.GoName + " (int32)", ""}
	for _, mem := range ei.Members {
		lines = append(lines, fmt.Sprintf("  %-20s = %d", mem.CName, mem.Value))
	}
	return lines
}

func typedefSummary(td *typemap.TypedefInfo) string {
	return fmt.Sprintf("typedef %s -> %s", td.Decl.Name, td.GoName)
}

func typedefDetail(td *typemap.TypedefInfo) []string {
	lines := []string{typedefSummary(td), ""}
	lines = append(lines, "  C: "+td.Decl.Type.String())
	if td.Info.Go != "" {
		lines = append(lines, fmt.Sprintf("  Go: %s  size %d  align %d  %s",
			td.Info.Go, td.Info.Size, td.Info.Align, td.Info.Class))
	}
	return lines
}

func constSummary(ci *typemap.ConstInfo) string {
	return "#define " + ci.Decl.Name + " " + constText(ci.Decl)
}

func constText(cd *cdecl.ConstDecl) string {
	switch cd.Kind {
	case cdecl.ConstFloat:
		return strconv.FormatFloat(cd.Float, 'g', -1, 64)
	case cdecl.ConstString:
		return strconv.Quote(cd.Str)
	case cdecl.ConstChar:
		return strconv.QuoteRune(rune(cd.Int))
	default:
		return strconv.FormatInt(cd.Int, 10)
	}
}

// listDeclarations prints every mapped declaration with its layout, in
// declaration order.
func listDeclarations(req translate.Request) error {
	m, err := parseAndMap(req, req.Platform)
	if err != nil {
		return err
	}

	fmt.Printf("Headers: %s\n", strings.Join(req.HeaderPaths, ", "))
	fmt.Printf("Platform: %s\n", req.Platform.Name)

	if len(m.Funcs) > 0 {
		fmt.Printf("\nFunctions:\n")
		for _, fi := range m.Funcs {
			for _, line := range funcDetail(fi) {
				fmt.Println(line)
			}
			fmt.Println()
		}
	}
	if len(m.Structs) > 0 {
		fmt.Printf("Records:\n")
		for _, si := range m.Structs {
			for _, line := range structDetail(si) {
				fmt.Println(line)
			}
			fmt.Println()
		}
	}
	if len(m.Enums) > 0 {
		fmt.Printf("Enums:\n")
		for _, ei := range m.Enums {
			for _, line := range enumDetail(ei) {
				fmt.Println(line)
			}
			fmt.Println()
		}
	}
	if len(m.Typedefs) > 0 {
		fmt.Printf("Typedefs:\n")
		for _, td := range m.Typedefs {
			fmt.Println("  " + typedefSummary(td))
		}
		fmt.Println()
	}
	if len(m.Consts) > 0 {
		fmt.Printf("Constants:\n")
		for _, ci := range m.Consts {
			fmt.Println("  " + constSummary(ci))
		}
	}
	return nil
}
