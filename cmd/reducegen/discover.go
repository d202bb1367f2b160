package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// discoverOps parses reduce/ops.go and extracts the operator identifiers
// keying the opTable composite literal (Sum, Prod, ProdNZ, ...) by
// walking the source file's AST rather than hand-rolling a separate op
// manifest format that could drift from the real operator table.
func discoverOps(path string) ([]string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var ops []string
	ast.Inspect(f, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok || len(spec.Names) != 1 || spec.Names[0].Name != "opTable" {
			return true
		}
		if len(spec.Values) != 1 {
			return true
		}
		lit, ok := spec.Values[0].(*ast.CompositeLit)
		if !ok {
			return true
		}
		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				continue
			}
			if id, ok := kv.Key.(*ast.Ident); ok {
				ops = append(ops, id.Name)
			}
		}
		return false
	})

	if len(ops) == 0 {
		return nil, fmt.Errorf("%s: no opTable entries found", path)
	}
	return ops, nil
}
