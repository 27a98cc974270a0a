package frontend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/dusk-indust/gloss/internal/tree"
)

func newGoFrontend() *treeSitterFrontend {
	d, _ := tree.LookupDialect("go")
	return &treeSitterFrontend{
		language:   "go",
		extensions: []string{".go"},
		grammar:    tree_sitter.NewLanguage(tree_sitter_go.Language()),
		dialect:    d,
		containers: map[string]bool{
			"function_declaration": true,
			"method_declaration":   true,
			"type_declaration":     true,
		},
		statements: map[string]bool{
			"if_statement":                true,
			"for_statement":               true,
			"expression_switch_statement": true,
			"type_switch_statement":       true,
			"select_statement":            true,
			"short_var_declaration":       true,
			"assignment_statement":        true,
			"expression_statement":        true,
			"return_statement":            true,
			"go_statement":                true,
			"defer_statement":             true,
			"send_statement":              true,
			"var_declaration":             true,
			"const_declaration":           true,
		},
		name: goName,
	}
}

// goName handles the one irregular declaration: type_declaration keeps its
// name on a type_spec child rather than a direct field.
func goName(node *tree_sitter.Node, source []byte) string {
	if node.Kind() != "type_declaration" {
		return fieldName(node, source)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "type_spec" {
			return fieldName(child, source)
		}
	}
	return ""
}
