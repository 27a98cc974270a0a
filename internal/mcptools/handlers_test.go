package mcptools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gloss/internal/engine"
	"github.com/dusk-indust/gloss/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// stubRunner implements Annotator with a canned response.
type stubRunner struct {
	reports []*engine.FileReport
	err     error
	paths   []string
}

func (s *stubRunner) Run(_ context.Context, paths []string) ([]*engine.FileReport, error) {
	s.paths = append(s.paths, paths...)
	return s.reports, s.err
}

// newSeededSink builds a MemSink holding two annotated files:
//
//	orders.sql   process_order (reads orders, writes order_audit), order_total
//	billing.sql  bill_order    (reads orders)
func newSeededSink(t *testing.T) *graph.MemSink {
	t.Helper()
	ctx := context.Background()
	sink := graph.NewMemSink()
	require.NoError(t, sink.InitSchema(ctx))

	containers := []graph.ContainerRecord{
		{Key: "orders.sql/process_order:10", Name: "process_order", Kind: "create_procedure",
			File: "orders.sql", StartLine: 10, EndLine: 22, Summary: "Moves an open order into processing."},
		{Key: "orders.sql/order_total:26", Name: "order_total", Kind: "create_function",
			File: "orders.sql", StartLine: 26, EndLine: 29, Summary: "Sums the order's line totals."},
		{Key: "billing.sql/bill_order:5", Name: "bill_order", Kind: "create_procedure",
			File: "billing.sql", StartLine: 5, EndLine: 19, Summary: "Issues an invoice for an order."},
	}
	for _, c := range containers {
		require.NoError(t, sink.UpsertContainer(ctx, c))
	}

	statements := []graph.StatementRecord{
		{File: "orders.sql", StartLine: 14, EndLine: 16, Kind: "select_statement", Summary: "Reads the order state."},
		{File: "orders.sql", StartLine: 18, EndLine: 21, Kind: "if_statement", Summary: "Advances open orders."},
		{File: "orders.sql", StartLine: 12, EndLine: 12, Kind: "declare_statement", Summary: "Declares the state variable."},
		{File: "billing.sql", StartLine: 7, EndLine: 9, Kind: "select_statement", Summary: "Loads the order."},
	}
	for _, s := range statements {
		require.NoError(t, sink.UpsertStatement(ctx, s))
	}

	for _, e := range []graph.EntityRecord{{Name: "orders", Kind: "table"}, {Name: "order_audit", Kind: "table"}} {
		require.NoError(t, sink.UpsertEntity(ctx, e))
	}

	edges := []graph.Edge{
		{SourceKey: "orders.sql:14-16", TargetKey: "orders.sql/process_order:10", Kind: graph.EdgeKindBelongsTo},
		{SourceKey: "orders.sql:18-21", TargetKey: "orders.sql/process_order:10", Kind: graph.EdgeKindBelongsTo},
		{SourceKey: "billing.sql:7-9", TargetKey: "billing.sql/bill_order:5", Kind: graph.EdgeKindBelongsTo},
		{SourceKey: "orders.sql:14-16", TargetKey: "table:orders", Kind: graph.EdgeKindRefersTo},
		{SourceKey: "orders.sql:18-21", TargetKey: "table:order_audit", Kind: graph.EdgeKindRefersTo},
		{SourceKey: "billing.sql:7-9", TargetKey: "table:orders", Kind: graph.EdgeKindRefersTo},
	}
	for _, e := range edges {
		require.NoError(t, sink.UpsertEdge(ctx, e))
	}

	return sink
}

// ---------------------------------------------------------------------------
// annotate_file
// ---------------------------------------------------------------------------

func TestAnnotateFile_ReportsPipelineResult(t *testing.T) {
	runner := &stubRunner{reports: []*engine.FileReport{{
		File:       "orders.sql",
		Statements: 6,
		Containers: 2,
		Batches:    3,
		Applied:    3,
		Finalized:  2,
		Warnings:   []string{"orders.sql:4-4: no usable result"},
	}}}
	svc := NewAnnotateService(graph.NewMemSink(), runner)

	_, out, err := svc.AnnotateFile(context.Background(), nil, AnnotateFileInput{Path: "orders.sql"})
	require.NoError(t, err)

	assert.Equal(t, []string{"orders.sql"}, runner.paths)
	assert.Equal(t, "orders.sql", out.File)
	assert.False(t, out.Skipped)
	assert.Equal(t, 6, out.Statements)
	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, 2, out.Finalized)
	assert.Len(t, out.Warnings, 1)
}

func TestAnnotateFile_UnchangedFileIsSkipped(t *testing.T) {
	svc := NewAnnotateService(graph.NewMemSink(), &stubRunner{})

	_, out, err := svc.AnnotateFile(context.Background(), nil, AnnotateFileInput{Path: "orders.sql"})
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, "orders.sql", out.File)
}

func TestAnnotateFile_RequiresPath(t *testing.T) {
	svc := NewAnnotateService(graph.NewMemSink(), &stubRunner{})

	_, _, err := svc.AnnotateFile(context.Background(), nil, AnnotateFileInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestAnnotateFile_PropagatesRunError(t *testing.T) {
	boom := errors.New("annotator unreachable")
	svc := NewAnnotateService(graph.NewMemSink(), &stubRunner{err: boom})

	_, _, err := svc.AnnotateFile(context.Background(), nil, AnnotateFileInput{Path: "orders.sql"})
	assert.ErrorIs(t, err, boom)
}

// ---------------------------------------------------------------------------
// list_containers / get_container_summary / get_statements
// ---------------------------------------------------------------------------

func TestListContainers_AllFiles(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, out, err := svc.ListContainers(context.Background(), nil, ListContainersInput{})
	require.NoError(t, err)

	require.Equal(t, 3, out.Total)
	assert.Equal(t, "billing.sql/bill_order:5", out.Containers[0].Key, "ordered by file then start line")
	assert.Equal(t, "orders.sql/process_order:10", out.Containers[1].Key)
	assert.Equal(t, "orders.sql/order_total:26", out.Containers[2].Key)
}

func TestListContainers_ByFile(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, out, err := svc.ListContainers(context.Background(), nil, ListContainersInput{File: "orders.sql"})
	require.NoError(t, err)

	require.Equal(t, 2, out.Total)
	for _, c := range out.Containers {
		assert.Equal(t, "orders.sql", c.File)
	}
}

func TestGetContainerSummary_ReturnsRecord(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, out, err := svc.GetContainerSummary(context.Background(), nil,
		GetContainerSummaryInput{Key: "orders.sql/process_order:10"})
	require.NoError(t, err)

	assert.Equal(t, "process_order", out.Container.Name)
	assert.Equal(t, "Moves an open order into processing.", out.Container.Summary)
}

func TestGetContainerSummary_NotFound(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, _, err := svc.GetContainerSummary(context.Background(), nil,
		GetContainerSummaryInput{Key: "orders.sql/missing:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders.sql/missing:1")
}

func TestGetStatements_OrderedByStartLine(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, out, err := svc.GetStatements(context.Background(), nil, GetStatementsInput{File: "orders.sql"})
	require.NoError(t, err)

	require.Equal(t, 3, out.Total)
	assert.Equal(t, 12, out.Statements[0].StartLine)
	assert.Equal(t, 14, out.Statements[1].StartLine)
	assert.Equal(t, 18, out.Statements[2].StartLine)
}

func TestGetStatements_RequiresFile(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, _, err := svc.GetStatements(context.Background(), nil, GetStatementsInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is required")
}

// ---------------------------------------------------------------------------
// related_containers / index_stats
// ---------------------------------------------------------------------------

func TestRelatedContainers_RanksBySharedEntities(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, out, err := svc.RelatedContainers(context.Background(), nil,
		RelatedContainersInput{Key: "orders.sql/process_order:10"})
	require.NoError(t, err)

	require.Len(t, out.Related, 1, "only bill_order shares an entity")
	rel := out.Related[0]
	assert.Equal(t, "billing.sql/bill_order:5", rel.Container.Key)
	assert.Equal(t, []string{"table:orders"}, rel.SharedEntities)
	assert.InDelta(t, 0.5, rel.Affinity, 1e-9, "1 shared of 2 union entities")
}

func TestIndexStats_Counts(t *testing.T) {
	svc := NewAnnotateService(newSeededSink(t), nil)

	_, out, err := svc.IndexStats(context.Background(), nil, IndexStatsInput{})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Stats.StatementCount)
	assert.Equal(t, 3, out.Stats.ContainerCount)
	assert.Equal(t, 2, out.Stats.EntityCount)
	assert.Equal(t, 6, out.Stats.EdgeCount)
}
