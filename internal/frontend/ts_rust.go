package frontend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/dusk-indust/gloss/internal/tree"
)

func newRustFrontend() *treeSitterFrontend {
	d, _ := tree.LookupDialect("rust")
	return &treeSitterFrontend{
		language:   "rust",
		extensions: []string{".rs"},
		grammar:    tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		dialect:    d,
		containers: map[string]bool{
			"function_item": true,
			"impl_item":     true,
			"struct_item":   true,
			"enum_item":     true,
			"trait_item":    true,
		},
		statements: map[string]bool{
			"let_declaration":      true,
			"expression_statement": true,
			"if_expression":        true,
			"match_expression":     true,
			"for_expression":       true,
			"while_expression":     true,
			"loop_expression":      true,
			"return_expression":    true,
			"macro_invocation":     true,
		},
		// Rust parses block-ending control flow as an expression inside an
		// expression_statement; the inner node is the span worth keeping.
		unwrap: map[string]bool{
			"expression_statement": true,
		},
		name: rustName,
	}
}

// rustName reads the "name" field where present; impl blocks carry the
// implemented type under "type" instead.
func rustName(node *tree_sitter.Node, source []byte) string {
	if node.Kind() == "impl_item" {
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			return typeNode.Utf8Text(source)
		}
		return ""
	}
	return fieldName(node, source)
}
