package engine

import "github.com/dusk-indust/gloss/internal/tree"

// Batch is one annotator call's worth of statements. IDs are 1-based and
// follow post-order traversal, which is also the order results are applied
// in: every batch with a lower ID holds only nodes that cannot depend on a
// higher-numbered batch.
type Batch struct {
	ID      int
	Nodes   []*tree.Node
	Tokens  int
	MaxLine int // highest end line in the batch, for progress display
}

// Plan packs analyzable nodes into token-bounded batches, preserving
// post-order. Leaves are packed greedily until the limit would be exceeded.
// A node with children always gets a batch of its own: its payload depends
// on its children's summaries, so it must not share dispatch timing with
// unrelated leaves.
func Plan(nodes []*tree.Node, tokenLimit int) []Batch {
	var batches []Batch
	var open []*tree.Node
	openTokens := 0

	flush := func() {
		if len(open) == 0 {
			return
		}
		batches = append(batches, makeBatch(len(batches)+1, open, openTokens))
		open = nil
		openTokens = 0
	}

	for _, n := range nodes {
		if !n.Analyzable {
			continue
		}
		if n.HasChildren() {
			flush()
			batches = append(batches, makeBatch(len(batches)+1, []*tree.Node{n}, n.TokenCost))
			continue
		}
		if len(open) > 0 && openTokens+n.TokenCost > tokenLimit {
			flush()
		}
		open = append(open, n)
		openTokens += n.TokenCost
	}
	flush()
	return batches
}

func makeBatch(id int, nodes []*tree.Node, tokens int) Batch {
	maxLine := 0
	for _, n := range nodes {
		if n.EndLine > maxLine {
			maxLine = n.EndLine
		}
	}
	return Batch{ID: id, Nodes: nodes, Tokens: tokens, MaxLine: maxLine}
}
