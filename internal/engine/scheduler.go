package engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/tree"
)

// scheduler dispatches planned batches to the annotation port. Batches run
// in parallel under the engine-wide semaphore; a batch whose nodes have
// children first waits for every analyzable descendant to conclude, because
// the parent's payload folds their summaries in.
type scheduler struct {
	cfg     Config
	port    annotate.Port
	sem     *semaphore.Weighted
	applier *applier
	file    string
}

// dispatchAll runs every batch on its own goroutine and waits for all of
// them. It uses errgroup.WithContext so that the first transport failure
// cancels the derived context, abandoning in-flight and still-waiting
// batches promptly.
func (s *scheduler) dispatchAll(ctx context.Context, batches []Batch) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, b := range batches {
		g.Go(func() error {
			if err := s.awaitDependencies(gctx, b); err != nil {
				return err
			}

			// The semaphore is held only around the port call: a parent
			// blocked on its children must never occupy a slot.
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			resp, err := s.port.AnalyzeBatch(gctx, s.buildRequest(b))
			s.sem.Release(1)
			if err != nil {
				return &BatchError{ID: b.ID, Line: b.MaxLine, Err: err} // triggers context cancellation for other goroutines
			}

			return s.applier.Submit(gctx, b, resp)
		})
	}

	return g.Wait()
}

// awaitDependencies blocks until every analyzable descendant of the batch's
// nodes has concluded. Structural children conclude at collection time, so
// the walk descends through them to reach the analyzable nodes beneath.
func (s *scheduler) awaitDependencies(ctx context.Context, b Batch) error {
	for _, n := range b.Nodes {
		for _, done := range collectChildSignals(n, nil) {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// collectChildSignals gathers the completion channels of a node's nearest
// analyzable descendants. Waiting on those is sufficient for the whole
// subtree: each analyzable child's own payload already waited for ITS
// children before it was dispatched.
func collectChildSignals(n *tree.Node, out []<-chan struct{}) []<-chan struct{} {
	for _, ch := range n.Children {
		if ch.Analyzable {
			out = append(out, ch.Done())
		} else {
			out = collectChildSignals(ch, out)
		}
	}
	return out
}

// buildRequest renders the batch payload and its range index.
func (s *scheduler) buildRequest(b Batch) annotate.BatchRequest {
	parts := make([]string, 0, len(b.Nodes))
	ranges := make([]annotate.Range, 0, len(b.Nodes))
	for _, n := range b.Nodes {
		parts = append(parts, renderNode(n, s.cfg.Mode))
		ranges = append(ranges, annotate.Range{Start: n.StartLine, End: n.EndLine})
	}
	return annotate.BatchRequest{
		File:    s.file,
		Payload: strings.Join(parts, "\n\n"),
		Ranges:  ranges,
		Locale:  s.cfg.Locale,
		Mode:    s.cfg.Mode.String(),
	}
}

// renderNode produces the annotator-facing view of one node. Parents fold
// concluded children into summary lines for analysis, or into slot markers
// for transformation so rewritten child code can be spliced back in.
func renderNode(n *tree.Node, mode Mode) string {
	if !n.HasChildren() {
		return n.RawCode()
	}
	if mode == ModeTransform {
		return n.PlaceholderCode()
	}
	return n.CompactCode()
}
