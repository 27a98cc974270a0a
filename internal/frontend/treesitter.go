package frontend

import (
	"bytes"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/gloss/internal/tree"
)

// nameFunc extracts a container's declared name from its syntax node.
type nameFunc func(node *tree_sitter.Node, source []byte) string

// treeSitterFrontend adapts one tree-sitter grammar to the Frontend
// interface. A new tree-sitter parser is created per Parse call, so the
// type is safe for concurrent use.
type treeSitterFrontend struct {
	language   string
	extensions []string
	grammar    *tree_sitter.Language
	dialect    *tree.Dialect

	// containers become named container nodes; statements become statement
	// nodes. Kinds in neither set are transparent: the walk descends into
	// them without emitting, and their lines stay inline in the enclosing
	// node's span.
	containers map[string]bool
	statements map[string]bool

	// unwrap marks statement kinds that are dropped when their sole named
	// child is itself in the statements set (Rust wraps control flow in
	// expression_statement; the inner span is the one worth a node).
	unwrap map[string]bool

	// anchor maps a matched node to the node whose span it should carry.
	// TypeScript exports and Python decorators wrap the declaration they
	// modify; the wrapper's lines belong to the declaration's node, or the
	// prefix would be stranded on a line the child claims.
	anchor func(node *tree_sitter.Node) *tree_sitter.Node

	name nameFunc
}

func (f *treeSitterFrontend) spanNode(node *tree_sitter.Node) *tree_sitter.Node {
	if f.anchor == nil {
		return node
	}
	return f.anchor(node)
}

func (f *treeSitterFrontend) Language() string       { return f.language }
func (f *treeSitterFrontend) Extensions() []string   { return f.extensions }
func (f *treeSitterFrontend) Dialect() *tree.Dialect { return f.dialect }

// Parse builds the raw statement tree for one source file.
func (f *treeSitterFrontend) Parse(path string, src []byte) (*tree.RawNode, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(f.grammar); err != nil {
		return nil, fmt.Errorf("frontend: set %s language: %w", f.language, err)
	}

	parsed := parser.Parse(src, nil)
	if parsed == nil {
		return nil, fmt.Errorf("frontend: %s: tree-sitter returned no tree", path)
	}
	defer parsed.Close()

	tsRoot := parsed.RootNode()
	root := &tree.RawNode{
		Kind:      tsRoot.Kind(),
		StartLine: 1,
		EndLine:   lineCount(src),
	}

	cursor := tsRoot.Walk()
	defer cursor.Close()
	f.walk(cursor, src, scope{raw: root})

	return root, nil
}

// scope is the RawNode currently collecting children plus the source
// position it begins at. Spans are line-granular, so a node that starts
// midway through its parent's first line must stay inline: replacing that
// line with the child's output would take the parent's own text with it.
type scope struct {
	raw *tree.RawNode
	pos tree_sitter.Point
}

func (s scope) covers(p tree_sitter.Point) bool {
	return p.Row > s.pos.Row || p == s.pos
}

func (f *treeSitterFrontend) walk(cursor *tree_sitter.TreeCursor, source []byte, sc scope) {
	node := cursor.Node()
	kind := node.Kind()

	switch {
	case f.containers[kind]:
		name := f.name(node, source)
		if name == "" {
			name = "anonymous"
		}
		span := f.spanNode(node)
		n := &tree.RawNode{
			Kind:      kind,
			Name:      name,
			StartLine: startLine(span),
			EndLine:   endLine(span),
		}
		if f.emit(sc, n, span.StartPosition()) {
			sc = scope{raw: n, pos: span.StartPosition()}
		}

	case f.statements[kind]:
		if f.unwrap[kind] && f.wrapsStatement(node) {
			break // the inner node carries the span
		}
		span := f.spanNode(node)
		n := &tree.RawNode{
			Kind:      kind,
			StartLine: startLine(span),
			EndLine:   endLine(span),
		}
		if f.emit(sc, n, span.StartPosition()) {
			sc = scope{raw: n, pos: span.StartPosition()}
		}
	}

	if cursor.GotoFirstChild() {
		f.walk(cursor, source, sc)
		for cursor.GotoNextSibling() {
			f.walk(cursor, source, sc)
		}
		cursor.GotoParent()
	}
}

// emit appends n to the scope unless it would collide in line-granular
// rendering: a node starting mid-line of its parent, or on a line an
// earlier sibling already covers, stays inline instead.
func (f *treeSitterFrontend) emit(sc scope, n *tree.RawNode, at tree_sitter.Point) bool {
	if !sc.covers(at) {
		return false
	}
	parent := sc.raw
	if len(parent.Children) > 0 && n.StartLine <= parent.Children[len(parent.Children)-1].EndLine {
		return false
	}
	parent.Children = append(parent.Children, n)
	return true
}

// wrapsStatement reports whether the node's only named child is itself an
// emitted statement kind.
func (f *treeSitterFrontend) wrapsStatement(node *tree_sitter.Node) bool {
	if node.NamedChildCount() != 1 {
		return false
	}
	child := node.NamedChild(0)
	return child != nil && f.statements[child.Kind()]
}

// fieldName returns the text of the node's "name" field, the common case
// for named declarations.
func fieldName(node *tree_sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return nameNode.Utf8Text(source)
}

func startLine(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func endLine(node *tree_sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// lineCount counts lines the same way a split on newlines does, so node
// spans always fit the collected source.
func lineCount(src []byte) int {
	return bytes.Count(src, []byte{'\n'}) + 1
}
