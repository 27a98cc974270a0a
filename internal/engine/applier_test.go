package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/tree"
)

// flatCollection builds a file of n top-level update statements, one per
// line, and plans one batch per statement.
func flatCollection(t *testing.T, n int) (*tree.Collection, []Batch) {
	t.Helper()
	var b strings.Builder
	root := &tree.RawNode{Kind: "sql_file", StartLine: 1, EndLine: n}
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "stmt %d\n", i)
		root.AddChild(&tree.RawNode{Kind: "update_statement", StartLine: i, EndLine: i})
	}
	src := tree.NewSource("flat.sql", b.String())
	d, ok := tree.LookupDialect("sql")
	require.True(t, ok)

	col, err := tree.Collect(root, src, d)
	require.NoError(t, err)
	return col, Plan(col.Nodes, 1)
}

func respFor(b Batch) *annotate.BatchResponse {
	resp := &annotate.BatchResponse{}
	for _, n := range b.Nodes {
		resp.Results = append(resp.Results, annotate.NodeResult{
			Range:   annotate.Range{Start: n.StartLine, End: n.EndLine},
			Summary: fmt.Sprintf("summary %d", n.StartLine),
		})
	}
	return resp
}

func TestApplier_BuffersOutOfOrderResults(t *testing.T) {
	col, batches := flatCollection(t, 3)
	require.Len(t, batches, 3)

	sink := newRecordingSink()
	app := newApplier(sink, col, "flat.sql", ModeAnalyze, len(batches), NewProgressReporter(), slog.Default())
	ctx := context.Background()

	// Batch 2 lands first and must wait for batch 1.
	require.NoError(t, app.Submit(ctx, batches[1], respFor(batches[1])))
	applied, _, _ := app.snapshot()
	assert.Equal(t, 0, applied)
	assert.Empty(t, sink.statementKeys())

	require.NoError(t, app.Submit(ctx, batches[0], respFor(batches[0])))
	applied, _, _ = app.snapshot()
	assert.Equal(t, 2, applied)

	require.NoError(t, app.Submit(ctx, batches[2], respFor(batches[2])))
	assert.Equal(t, []string{"flat.sql:1-1", "flat.sql:2-2", "flat.sql:3-3"}, sink.statementKeys())
	require.NoError(t, app.Finalize(ctx, false))
}

func TestApplier_FinalizeRejectsGaps(t *testing.T) {
	col, batches := flatCollection(t, 3)
	sink := newRecordingSink()
	app := newApplier(sink, col, "flat.sql", ModeAnalyze, len(batches), NewProgressReporter(), slog.Default())
	ctx := context.Background()

	require.NoError(t, app.Submit(ctx, batches[0], respFor(batches[0])))
	require.NoError(t, app.Submit(ctx, batches[2], respFor(batches[2])))

	err := app.Finalize(ctx, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 batches applied")
}

func TestApplier_ForceDrainSkipsGapsWithWarning(t *testing.T) {
	col, batches := flatCollection(t, 3)
	sink := newRecordingSink()
	app := newApplier(sink, col, "flat.sql", ModeAnalyze, len(batches), NewProgressReporter(), slog.Default())
	ctx := context.Background()

	require.NoError(t, app.Submit(ctx, batches[0], respFor(batches[0])))
	require.NoError(t, app.Submit(ctx, batches[2], respFor(batches[2])))

	require.NoError(t, app.Finalize(ctx, true))
	applied, _, warnings := app.snapshot()
	assert.Equal(t, 2, applied)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "batches 2-2 never arrived")

	// The skipped statement never reached the sink.
	assert.Equal(t, []string{"flat.sql:1-1", "flat.sql:3-3"}, sink.statementKeys())

	// A second forced drain has nothing left and must not re-apply.
	require.NoError(t, app.Finalize(ctx, true))
	applied, _, warnings = app.snapshot()
	assert.Equal(t, 2, applied)
	assert.Len(t, warnings, 1)
	assert.Len(t, sink.statementKeys(), 2)
}

func TestApplier_ForfeitsUnansweredRanges(t *testing.T) {
	col, batches := flatCollection(t, 2)
	sink := newRecordingSink()
	app := newApplier(sink, col, "flat.sql", ModeAnalyze, len(batches), NewProgressReporter(), slog.Default())
	ctx := context.Background()

	// Batch 1 comes back empty.
	require.NoError(t, app.Submit(ctx, batches[0], &annotate.BatchResponse{}))
	require.NoError(t, app.Submit(ctx, batches[1], respFor(batches[1])))

	applied, forfeited, warnings := app.snapshot()
	assert.Equal(t, 2, applied)
	assert.Equal(t, 1, forfeited)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "flat.sql:1-1: no usable result")

	// The forfeited node is still concluded so dependents can proceed.
	assert.True(t, col.Nodes[0].Concluded())
	_, ok := col.Nodes[0].Summary()
	assert.False(t, ok)
}

func TestApplier_WarnsOnUnknownRanges(t *testing.T) {
	col, batches := flatCollection(t, 1)
	sink := newRecordingSink()
	app := newApplier(sink, col, "flat.sql", ModeAnalyze, len(batches), NewProgressReporter(), slog.Default())
	ctx := context.Background()

	resp := respFor(batches[0])
	resp.Results = append(resp.Results, annotate.NodeResult{
		Range:   annotate.Range{Start: 99, End: 99},
		Summary: "stray",
	})
	require.NoError(t, app.Submit(ctx, batches[0], resp))

	_, _, warnings := app.snapshot()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "1 results for unknown ranges")
}

func TestApplier_EmitsContainerWorkWhenMembersConclude(t *testing.T) {
	src := tree.NewSource("proc.sql", "head\nupdate\nselect")
	root := &tree.RawNode{Kind: "sql_file", StartLine: 1, EndLine: 3}
	proc := root.AddChild(&tree.RawNode{Kind: "create_procedure", Name: "p", StartLine: 1, EndLine: 3})
	proc.AddChild(&tree.RawNode{Kind: "update_statement", StartLine: 2, EndLine: 2})
	proc.AddChild(&tree.RawNode{Kind: "select_statement", StartLine: 3, EndLine: 3})
	d, _ := tree.LookupDialect("sql")

	col, err := tree.Collect(root, src, d)
	require.NoError(t, err)
	batches := Plan(col.Nodes, 10_000)
	require.Len(t, batches, 2) // both leaves packed, then the procedure

	sink := newRecordingSink()
	app := newApplier(sink, col, "proc.sql", ModeAnalyze, len(batches), NewProgressReporter(), slog.Default())
	ctx := context.Background()

	require.NoError(t, app.Submit(ctx, batches[0], respFor(batches[0])))

	select {
	case w := <-app.Ready():
		assert.Equal(t, "proc.sql/p:1", w.Container.Key)
		assert.Equal(t, []string{"summary 2", "summary 3"}, w.Fragments)
	default:
		t.Fatal("container work not emitted after both members concluded")
	}
}
