package tree

import (
	"regexp"
	"sort"
	"strings"
)

var slotMarkerRe = regexp.MustCompile(`__SLOT_\d+__`)

// frame is one open nesting context during reassembly: a parent node whose
// text still carries slot markers awaiting child output.
type frame struct {
	node *Node
	text string
}

// Reassemble builds linear output from per-node text in source order.
// textOf supplies each node's content: for parents a skeleton containing one
// slot marker per child, for leaves the finished text. Walking nodes by
// ascending start line, a parent opens a frame; once the walk passes a
// frame's end line the frame pops and its accumulated text is spliced into
// the enclosing frame at the popped node's marker (appended when the marker
// is absent). Markers that no child ever matched are left in the output
// verbatim and reported as warnings, never dropped.
func Reassemble(nodes []*Node, textOf func(*Node) string) (string, []string) {
	sorted := make([]*Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartLine != sorted[j].StartLine {
			return sorted[i].StartLine < sorted[j].StartLine
		}
		if sorted[i].EndLine != sorted[j].EndLine {
			return sorted[i].EndLine > sorted[j].EndLine // parents before children
		}
		// Identical spans mean one wraps the other; post-order assigns the
		// wrapper the higher ID, and it must be on the stack first.
		return sorted[i].ID > sorted[j].ID
	})

	var out []string
	var stack []frame

	splice := func(text, marker string) {
		if len(stack) == 0 {
			out = append(out, text)
			return
		}
		top := &stack[len(stack)-1]
		if marker != "" && strings.Contains(top.text, marker) {
			top.text = strings.Replace(top.text, marker, text, 1)
			return
		}
		top.text += "\n" + text
	}

	pop := func() {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		splice(f.text, f.node.SlotMarker())
	}

	for _, n := range sorted {
		for len(stack) > 0 && stack[len(stack)-1].node.EndLine < n.StartLine {
			pop()
		}
		if n.HasChildren() {
			stack = append(stack, frame{node: n, text: textOf(n)})
			continue
		}
		splice(textOf(n), n.SlotMarker())
	}
	for len(stack) > 0 {
		pop()
	}

	output := strings.Join(out, "\n")

	var warnings []string
	for _, m := range slotMarkerRe.FindAllString(output, -1) {
		warnings = append(warnings, "unmatched placeholder "+m+" left in output")
	}
	return output, warnings
}
