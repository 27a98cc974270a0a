// Package tree holds the statement-tree data model: nodes collected from a
// parsed source file, the containers (procedures, functions, classes) that
// own them, one-shot completion signals, and the reassembler that splices
// transformed node output back into linear text.
package tree

import (
	"fmt"
	"strings"
)

// RawNode is the frontend-facing input shape: a parsed syntax-tree element
// carrying only what collection needs. Raw trees are consumed by Collect and
// never retained.
type RawNode struct {
	Kind      string
	Name      string // declared name, set for container kinds
	StartLine int    // 1-based, inclusive
	EndLine   int    // 1-based, inclusive
	Children  []*RawNode
}

// AddChild appends a child and returns it, for fluent tree building.
func (r *RawNode) AddChild(c *RawNode) *RawNode {
	r.Children = append(r.Children, c)
	return c
}

// Node is one statement-tree element. Nodes are created during collection,
// concluded exactly once (by the applier, or at creation for structural
// nodes), and discarded with the tree after the file's run.
type Node struct {
	ID        int    // monotonic, assigned in post-order
	Kind      string // statement type or entity kind
	StartLine int
	EndLine   int

	Parent   *Node   // non-owning back-reference, nil at the root
	Children []*Node // source order

	Analyzable   bool   // false for structural wrappers never sent to annotation
	ContainerKey string // nearest enclosing container, "" outside any
	TokenCost    int

	lines []string // numbered source lines for the span

	// Outcome fields are written once by Conclude before the signal fires;
	// readers must observe Done() (or an event ordered after the write)
	// before calling Summary or TransformedCode.
	summary string
	code    string
	done    *Signal
}

// HasChildren reports whether the node owns child nodes.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// RawCode returns the verbatim numbered source lines for the node's span.
func (n *Node) RawCode() string {
	return strings.Join(n.lines, "\n")
}

// lineAt returns the stored numbered line for the given 1-based line number.
func (n *Node) lineAt(line int) string {
	return n.lines[line-n.StartLine]
}

// SlotMarker returns the sentinel token standing in for this node's output
// in a parent's placeholder view. Markers carry node IDs, which are unique
// within a run.
func (n *Node) SlotMarker() string {
	return fmt.Sprintf("__SLOT_%d__", n.ID)
}

// CompactCode renders the node's span with each direct child span replaced
// by a single line carrying the child's summary, or by the child's slot
// marker when the child is analyzable but not yet concluded. Structural
// children, which never receive summaries, are inlined with their own
// compact view so their content stays visible to ancestors.
func (n *Node) CompactCode() string {
	if len(n.Children) == 0 {
		return n.RawCode()
	}
	var b strings.Builder
	n.writeCompact(&b)
	return strings.TrimSuffix(b.String(), "\n")
}

func (n *Node) writeCompact(b *strings.Builder) {
	line := n.StartLine
	ci := 0
	for line <= n.EndLine {
		for ci < len(n.Children) && n.Children[ci].StartLine < line {
			ci++ // overlapping span already covered
		}
		if ci < len(n.Children) && n.Children[ci].StartLine == line {
			c := n.Children[ci]
			switch {
			case !c.Analyzable:
				c.writeCompact(b)
			default:
				if s, ok := c.Summary(); ok {
					fmt.Fprintf(b, "%d-%d: [%s] %s\n", c.StartLine, c.EndLine, c.Kind, s)
				} else {
					b.WriteString(c.SlotMarker())
					b.WriteByte('\n')
				}
			}
			line = c.EndLine + 1
			ci++
			continue
		}
		b.WriteString(n.lineAt(line))
		b.WriteByte('\n')
		line++
	}
}

// PlaceholderCode renders the node's span with every direct child span
// replaced by the child's slot marker line — never by summary text — so the
// reassembler can splice child output back in precisely.
func (n *Node) PlaceholderCode() string {
	if len(n.Children) == 0 {
		return n.RawCode()
	}
	var b strings.Builder
	line := n.StartLine
	ci := 0
	for line <= n.EndLine {
		for ci < len(n.Children) && n.Children[ci].StartLine < line {
			ci++
		}
		if ci < len(n.Children) && n.Children[ci].StartLine == line {
			c := n.Children[ci]
			b.WriteString(c.SlotMarker())
			b.WriteByte('\n')
			line = c.EndLine + 1
			ci++
			continue
		}
		b.WriteString(n.lineAt(line))
		b.WriteByte('\n')
		line++
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Conclude records the node's annotation outcome and fires the completion
// signal. Empty summary and code mark the node forfeited. Only the first
// call has any effect; the fields are written before the signal fires, so
// waiters on Done observe them.
func (n *Node) Conclude(summary, code string) {
	if n.done.Fired() {
		return
	}
	n.summary = summary
	n.code = code
	n.done.Fire()
}

// Concluded reports whether the node's outcome has been recorded.
func (n *Node) Concluded() bool {
	return n.done.Fired()
}

// Done returns the completion signal's channel.
func (n *Node) Done() <-chan struct{} {
	return n.done.Done()
}

// Summary returns the recorded summary. The second result is false for
// forfeited or unconcluded nodes.
func (n *Node) Summary() (string, bool) {
	return n.summary, n.summary != ""
}

// TransformedCode returns the transformed output recorded in transform mode.
// The second result is false when no code was produced.
func (n *Node) TransformedCode() (string, bool) {
	return n.code, n.code != ""
}
