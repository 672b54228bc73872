package homeostasis

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// extractFileSymbols parses one Go source file and collects its exported
// function signatures, exported struct field types, and imports. Parses
// only — never imports or executes the file, matching the discipline
// pkg/immune uses for skill scanning.
func extractFileSymbols(path string) (FileSymbols, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return FileSymbols{}, err
	}

	sym := FileSymbols{
		Functions:  make(map[string]string),
		Attributes: make(map[string]string),
	}

	for _, imp := range file.Imports {
		sym.Imports = append(sym.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.FuncDecl:
			if decl.Recv == nil && decl.Name.IsExported() {
				sym.Functions[decl.Name.Name] = renderFuncSignature(decl)
			}
		case *ast.TypeSpec:
			structType, ok := decl.Type.(*ast.StructType)
			if !ok || !decl.Name.IsExported() {
				return true
			}
			for _, field := range structType.Fields.List {
				fieldType := renderExpr(field.Type)
				if len(field.Names) == 0 {
					sym.Attributes[decl.Name.Name+"."+fieldType] = fieldType
					continue
				}
				for _, name := range field.Names {
					if name.IsExported() {
						sym.Attributes[decl.Name.Name+"."+name.Name] = fieldType
					}
				}
			}
		}
		return true
	})

	return sym, nil
}

func renderFuncSignature(decl *ast.FuncDecl) string {
	var params, results []string
	if decl.Type.Params != nil {
		for _, p := range decl.Type.Params.List {
			params = append(params, renderExpr(p.Type))
		}
	}
	if decl.Type.Results != nil {
		for _, r := range decl.Type.Results.List {
			results = append(results, renderExpr(r.Type))
		}
	}
	sig := "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		sig += " (" + strings.Join(results, ", ") + ")"
	}
	return sig
}

func renderExpr(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + renderExpr(t.X)
	case *ast.ArrayType:
		return "[]" + renderExpr(t.Elt)
	case *ast.SelectorExpr:
		return renderExpr(t.X) + "." + t.Sel.Name
	case *ast.MapType:
		return "map[" + renderExpr(t.Key) + "]" + renderExpr(t.Value)
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.Ellipsis:
		return "..." + renderExpr(t.Elt)
	default:
		return "?"
	}
}
