package frontend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/gloss/internal/tree"
)

func newPythonFrontend() *treeSitterFrontend {
	d, _ := tree.LookupDialect("python")
	return &treeSitterFrontend{
		language:   "python",
		extensions: []string{".py"},
		grammar:    tree_sitter.NewLanguage(tree_sitter_python.Language()),
		dialect:    d,
		containers: map[string]bool{
			"function_definition": true,
			"class_definition":    true,
		},
		statements: map[string]bool{
			"if_statement":         true,
			"for_statement":        true,
			"while_statement":      true,
			"try_statement":        true,
			"with_statement":       true,
			"match_statement":      true,
			"expression_statement": true,
			"return_statement":     true,
			"raise_statement":      true,
			"assert_statement":     true,
			"delete_statement":     true,
			"global_statement":     true,
		},
		anchor: decoratorAnchor,
		name:   fieldName,
	}
}

// decoratorAnchor widens a decorated def or class to its
// decorated_definition so decorator lines stay with the declaration.
func decoratorAnchor(node *tree_sitter.Node) *tree_sitter.Node {
	if p := node.Parent(); p != nil && p.Kind() == "decorated_definition" {
		return p
	}
	return node
}
