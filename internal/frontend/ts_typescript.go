package frontend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/gloss/internal/tree"
)

func newTypeScriptFrontend() *treeSitterFrontend {
	d, _ := tree.LookupDialect("typescript")
	return &treeSitterFrontend{
		language:   "typescript",
		extensions: []string{".ts", ".tsx"},
		grammar:    tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		dialect:    d,
		containers: map[string]bool{
			"function_declaration":  true,
			"method_definition":     true,
			"class_declaration":     true,
			"interface_declaration": true,
		},
		statements: map[string]bool{
			"if_statement":         true,
			"for_statement":        true,
			"for_in_statement":     true,
			"while_statement":      true,
			"do_statement":         true,
			"switch_statement":     true,
			"try_statement":        true,
			"expression_statement": true,
			"return_statement":     true,
			"throw_statement":      true,
			"lexical_declaration":  true,
			"variable_declaration": true,
		},
		anchor: exportAnchor,
		name:   fieldName,
	}
}

// exportAnchor widens an exported declaration to its export_statement so
// the "export" prefix travels with the declaration's span.
func exportAnchor(node *tree_sitter.Node) *tree_sitter.Node {
	if p := node.Parent(); p != nil && p.Kind() == "export_statement" {
		return p
	}
	return node
}
