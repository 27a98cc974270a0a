package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/graph"
	"github.com/dusk-indust/gloss/internal/tree"
)

func TestChunkFragments_AllFitOneChunk(t *testing.T) {
	frags := []string{"a", "b", "c"}
	chunks := chunkFragments(frags, 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, frags, chunks[0])
}

func TestChunkFragments_SplitsAtLimit(t *testing.T) {
	long := strings.Repeat("x", 400) // ~100 tokens
	chunks := chunkFragments([]string{long, long, long, long, long}, 250)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 2)
	assert.Len(t, chunks[2], 1)
}

func TestChunkFragments_MinTwoPerChunkGuaranteesProgress(t *testing.T) {
	// Every fragment alone exceeds the limit; chunks still take two, so a
	// folding round always shrinks the list.
	huge := strings.Repeat("y", 100)
	chunks := chunkFragments([]string{huge, huge, huge}, 1)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 1)
}

func TestChunkFragments_SingleFragment(t *testing.T) {
	chunks := chunkFragments([]string{"only"}, 1)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"only"}, chunks[0])
}

// containerScenario is a procedure holding four single-line statements.
func containerScenario(t *testing.T) (*tree.Source, *tree.RawNode, *tree.Dialect) {
	t.Helper()
	src := tree.NewSource("fold.sql", "head\ns2\ns3\ns4\ns5\ntail")
	root := &tree.RawNode{Kind: "sql_file", StartLine: 1, EndLine: 6}
	proc := root.AddChild(&tree.RawNode{Kind: "create_procedure", Name: "big", StartLine: 1, EndLine: 6})
	for i := 2; i <= 5; i++ {
		proc.AddChild(&tree.RawNode{Kind: "update_statement", StartLine: i, EndLine: i})
	}
	d, ok := tree.LookupDialect("sql")
	require.True(t, ok)
	return src, root, d
}

func TestRunSource_FoldsLargeContainersInRounds(t *testing.T) {
	src, raw, d := containerScenario(t)
	port := &stubPort{}
	sink := graph.NewMemSink()

	// A group limit of 1 token forces pairwise folding: two chunks in the
	// first round, one more call to fold the pair of round-one summaries.
	e := New(Config{GroupTokenLimit: 1}, port, sink)
	defer e.Close()

	report, err := e.RunSource(context.Background(), src, raw, d)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Finalized)

	require.Len(t, port.groups, 3)
	assert.Equal(t, []string{"summary 2-2", "summary 3-3"}, port.groups[0].Fragments)
	assert.Equal(t, []string{"summary 4-4", "summary 5-5"}, port.groups[1].Fragments)
	assert.Equal(t, []string{"summary 2-2; summary 3-3", "summary 4-4; summary 5-5"}, port.groups[2].Fragments)

	container, err := sink.GetContainer(context.Background(), "fold.sql/big:1")
	require.NoError(t, err)
	require.NotNil(t, container)
	assert.Equal(t, "summary 2-2; summary 3-3; summary 4-4; summary 5-5", container.Summary)
	assert.Equal(t, "create_procedure", container.Kind)
	assert.Equal(t, 1, container.StartLine)
	assert.Equal(t, 6, container.EndLine)
}

func TestRunSource_GroupSummaryErrorFailsFile(t *testing.T) {
	src, raw, d := containerScenario(t)
	groupErr := errors.New("group model overloaded")
	port := &stubPort{}
	port.group = func(req annotate.GroupRequest) (string, error) {
		// Let the remaining batches finish so the dispatch side stays clean.
		time.Sleep(30 * time.Millisecond)
		return "", groupErr
	}

	e := New(Config{}, port, graph.NewMemSink())
	defer e.Close()

	_, err := e.RunSource(context.Background(), src, raw, d)
	require.Error(t, err)
	assert.ErrorIs(t, err, groupErr)
	assert.Contains(t, err.Error(), "summarize container fold.sql/big:1")
	assert.Equal(t, SeverityFile, Classify(err))
}

func TestRunSource_EmptyContainerSkipsFolding(t *testing.T) {
	// A procedure whose only member forfeits: no fragments, no group call,
	// and no container record.
	src := tree.NewSource("empty.sql", "head\nbody")
	root := &tree.RawNode{Kind: "sql_file", StartLine: 1, EndLine: 2}
	proc := root.AddChild(&tree.RawNode{Kind: "create_procedure", Name: "hollow", StartLine: 1, EndLine: 2})
	proc.AddChild(&tree.RawNode{Kind: "update_statement", StartLine: 2, EndLine: 2})
	d, _ := tree.LookupDialect("sql")

	port := &stubPort{}
	port.analyze = func(req annotate.BatchRequest) (*annotate.BatchResponse, error) {
		return &annotate.BatchResponse{}, nil // nothing answered, everything forfeits
	}
	sink := graph.NewMemSink()
	e := New(Config{}, port, sink)
	defer e.Close()

	report, err := e.RunSource(context.Background(), src, root, d)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Forfeited)
	assert.Equal(t, 0, report.Finalized)
	assert.Empty(t, port.groups)

	container, err := sink.GetContainer(context.Background(), "empty.sql/hollow:1")
	require.NoError(t, err)
	assert.Nil(t, container)
}
