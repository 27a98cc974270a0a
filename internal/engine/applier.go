package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/graph"
	"github.com/dusk-indust/gloss/internal/tree"
)

// ContainerWork is handed to the finalization worker once the last
// statement of a container has concluded. Fragments are the container's
// descendant summaries in source order.
type ContainerWork struct {
	Container *tree.Container
	Fragments []string
}

type applyItem struct {
	batch Batch
	resp  *annotate.BatchResponse
}

// applier serializes result application. Batches may finish in any order;
// the applier buffers out-of-order arrivals and applies them strictly by
// ascending batch ID, so tree conclusions and sink writes happen in the
// same order on every run.
type applier struct {
	sink     graph.Sink
	col      *tree.Collection
	file     string
	mode     Mode
	progress *ProgressReporter
	logger   *slog.Logger

	mu        sync.Mutex
	next      int // next batch ID to apply
	total     int
	applied   int
	forfeited int
	pending   map[int]applyItem
	warnings  []string

	ready     chan ContainerWork
	readyOnce sync.Once
}

// newApplier sizes the ready channel to the container count, so sends under
// the applier's mutex can never block: each container fires at most once.
func newApplier(sink graph.Sink, col *tree.Collection, file string, mode Mode, total int, progress *ProgressReporter, logger *slog.Logger) *applier {
	return &applier{
		sink:     sink,
		col:      col,
		file:     file,
		mode:     mode,
		progress: progress,
		logger:   logger,
		next:     1,
		total:    total,
		pending:  make(map[int]applyItem),
		ready:    make(chan ContainerWork, len(col.Containers)),
	}
}

// Ready exposes the finalization queue.
func (a *applier) Ready() <-chan ContainerWork {
	return a.ready
}

// CloseReady closes the finalization queue. Safe to call more than once.
func (a *applier) CloseReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}

// Submit buffers one batch result and applies every batch that is now
// contiguous with the last applied ID.
func (a *applier) Submit(ctx context.Context, b Batch, resp *annotate.BatchResponse) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[b.ID] = applyItem{batch: b, resp: resp}
	return a.drainLocked(ctx, false)
}

// Finalize checks that every batch was applied. With force it instead
// drains whatever arrived, warning about gaps and applying the remainder
// out of order, so a failed run still persists the results it has.
func (a *applier) Finalize(ctx context.Context, force bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if force {
		return a.drainLocked(ctx, true)
	}
	if len(a.pending) > 0 || a.applied != a.total {
		return fmt.Errorf("engine: %d of %d batches applied, results missing", a.applied, a.total)
	}
	return nil
}

func (a *applier) drainLocked(ctx context.Context, force bool) error {
	for {
		item, ok := a.pending[a.next]
		if !ok {
			if !force || len(a.pending) == 0 {
				return nil
			}
			// Skip over the gap to the next buffered batch.
			skipTo := a.lowestPendingLocked()
			a.warn("batches %d-%d never arrived, applying batch %d out of order", a.next, skipTo-1, skipTo)
			a.next = skipTo
			continue
		}
		delete(a.pending, a.next)
		if err := a.applyLocked(ctx, item); err != nil {
			return err
		}
		a.next++
	}
}

func (a *applier) lowestPendingLocked() int {
	lowest := 0
	for id := range a.pending {
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}
	return lowest
}

// applyLocked records one batch's outcomes on the tree and in the sink.
func (a *applier) applyLocked(ctx context.Context, item applyItem) error {
	byRange := make(map[annotate.Range]annotate.NodeResult, len(item.resp.Results))
	for _, r := range item.resp.Results {
		byRange[r.Range] = r
	}

	matched := 0
	for _, n := range item.batch.Nodes {
		res, ok := byRange[annotate.Range{Start: n.StartLine, End: n.EndLine}]
		if ok {
			matched++
		}
		if !ok || a.resultEmpty(res) {
			a.forfeited++
			a.warn("%s:%d-%d: no usable result, statement forfeited", a.file, n.StartLine, n.EndLine)
			n.Conclude("", "")
		} else {
			n.Conclude(res.Summary, res.Code)
			if err := a.persistLocked(ctx, n, res); err != nil {
				return err
			}
		}

		// The forfeit still counts toward its container: "concluded" means
		// the outcome is known, not that it succeeded.
		if a.mode == ModeAnalyze && n.ContainerKey != "" {
			if c := a.col.Containers[n.ContainerKey]; c != nil && c.Decrement() {
				a.ready <- ContainerWork{Container: c, Fragments: a.fragmentsLocked(c)}
			}
		}
	}

	if matched < len(item.resp.Results) {
		a.warn("%s: batch %d returned %d results for unknown ranges", a.file, item.batch.ID, len(item.resp.Results)-matched)
	}

	a.applied++
	a.progress.Emit(Event{
		File:    a.file,
		Phase:   PhaseSemantic,
		Batches: a.total,
		Done:    a.applied,
		Line:    item.batch.MaxLine,
	})
	return nil
}

// resultEmpty decides whether a result carries anything usable. In analyze
// mode that is a summary; in transform mode rewritten code alone is enough.
func (a *applier) resultEmpty(res annotate.NodeResult) bool {
	if a.mode == ModeTransform {
		return res.Summary == "" && res.Code == ""
	}
	return res.Summary == ""
}

// persistLocked writes the statement, its containment edge, and any entity
// references to the sink. Transform results without summaries leave no
// trace in the graph.
func (a *applier) persistLocked(ctx context.Context, n *tree.Node, res annotate.NodeResult) error {
	if res.Summary == "" {
		return nil
	}
	rec := graph.StatementRecord{
		File:      a.file,
		StartLine: n.StartLine,
		EndLine:   n.EndLine,
		Kind:      n.Kind,
		Summary:   res.Summary,
	}
	if err := a.sink.UpsertStatement(ctx, rec); err != nil {
		return fmt.Errorf("engine: persist statement %s: %w", rec.Key(), err)
	}
	if n.ContainerKey != "" {
		edge := graph.Edge{SourceKey: rec.Key(), TargetKey: n.ContainerKey, Kind: graph.EdgeKindBelongsTo}
		if err := a.sink.UpsertEdge(ctx, edge); err != nil {
			return fmt.Errorf("engine: persist containment edge for %s: %w", rec.Key(), err)
		}
	}
	for _, ref := range res.Refs {
		ent := graph.EntityRecord{Name: ref.Target, Kind: ref.Kind}
		if err := a.sink.UpsertEntity(ctx, ent); err != nil {
			return fmt.Errorf("engine: persist entity %s: %w", ent.Key(), err)
		}
		edge := graph.Edge{SourceKey: rec.Key(), TargetKey: ent.Key(), Kind: graph.EdgeKindRefersTo}
		if err := a.sink.UpsertEdge(ctx, edge); err != nil {
			return fmt.Errorf("engine: persist reference edge for %s: %w", rec.Key(), err)
		}
	}
	return nil
}

// fragmentsLocked gathers a container's descendant summaries in source
// order. Every descendant has concluded by the time the container fires, so
// reading summaries here is race-free.
func (a *applier) fragmentsLocked(c *tree.Container) []string {
	var members []*tree.Node
	for _, n := range a.col.Nodes {
		if n.ContainerKey == c.Key {
			members = append(members, n)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].StartLine != members[j].StartLine {
			return members[i].StartLine < members[j].StartLine
		}
		return members[i].EndLine > members[j].EndLine
	})

	var fragments []string
	for _, n := range members {
		if s, ok := n.Summary(); ok {
			fragments = append(fragments, s)
		}
	}
	return fragments
}

func (a *applier) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.warnings = append(a.warnings, msg)
	a.logger.Warn(msg)
}

// snapshot returns the applier's counters for the file report.
func (a *applier) snapshot() (applied, forfeited int, warnings []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.warnings))
	copy(out, a.warnings)
	return a.applied, a.forfeited, out
}
