package tree

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioSource builds a 20-line source file.
func scenarioSource() *Source {
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "stmt %d\n", i)
	}
	return NewSource("proc.sql", b.String())
}

// scenarioRaw builds the three-level tree used across the package tests:
// create_procedure(1-20) -> if_statement(5-15) -> select_statement(7-10),
// wrapped in a structural sql_file root.
func scenarioRaw() *RawNode {
	root := &RawNode{Kind: "sql_file", StartLine: 1, EndLine: 20}
	proc := root.AddChild(&RawNode{Kind: "create_procedure", Name: "process_order", StartLine: 1, EndLine: 20})
	ifn := proc.AddChild(&RawNode{Kind: "if_statement", StartLine: 5, EndLine: 15})
	ifn.AddChild(&RawNode{Kind: "select_statement", StartLine: 7, EndLine: 10})
	return root
}

func collectScenario(t *testing.T) *Collection {
	t.Helper()
	d, ok := LookupDialect("sql")
	require.True(t, ok)
	col, err := Collect(scenarioRaw(), scenarioSource(), d)
	require.NoError(t, err)
	return col
}

func TestSignalFiresOnceForAllWaiters(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.Fired())

	const waiters = 8
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			<-s.Done()
		}()
	}

	s.Fire()
	s.Fire() // second fire is a no-op
	wg.Wait()
	assert.True(t, s.Fired())
}

func TestNodeConcludeIsOneShot(t *testing.T) {
	col := collectScenario(t)
	sel := col.Nodes[0]
	require.Equal(t, "select_statement", sel.Kind)

	sel.Conclude("first", "")
	sel.Conclude("second", "ignored")

	got, ok := sel.Summary()
	require.True(t, ok)
	assert.Equal(t, "first", got)
	_, hasCode := sel.TransformedCode()
	assert.False(t, hasCode)
}

func TestRawCodeKeepsLineNumbers(t *testing.T) {
	col := collectScenario(t)
	sel := col.Nodes[0]

	want := "7: stmt 7\n8: stmt 8\n9: stmt 9\n10: stmt 10"
	assert.Equal(t, want, sel.RawCode())
}

func TestCompactCodeUsesMarkerThenSummary(t *testing.T) {
	col := collectScenario(t)
	sel, ifn := col.Nodes[0], col.Nodes[1]
	require.Equal(t, "if_statement", ifn.Kind)

	compact := ifn.CompactCode()
	assert.Contains(t, compact, sel.SlotMarker())
	assert.Contains(t, compact, "5: stmt 5")
	assert.Contains(t, compact, "15: stmt 15")
	assert.NotContains(t, compact, "8: stmt 8")

	sel.Conclude("reads pending orders", "")
	compact = ifn.CompactCode()
	assert.NotContains(t, compact, sel.SlotMarker())
	assert.Contains(t, compact, "7-10: [select_statement] reads pending orders")
}

func TestCompactCodeInlinesStructuralChildren(t *testing.T) {
	src := NewSource("w.sql", "a\nb\nc\nd")
	d := NewDialect("wrapped", nil, []string{"file", "wrapper"})
	root := &RawNode{Kind: "file", StartLine: 1, EndLine: 4}
	wrap := root.AddChild(&RawNode{Kind: "wrapper", StartLine: 2, EndLine: 3})
	wrap.AddChild(&RawNode{Kind: "stmt", StartLine: 2, EndLine: 2})

	col, err := Collect(root, src, d)
	require.NoError(t, err)

	stmt := col.Nodes[0]
	stmt.Conclude("does a thing", "")

	compact := col.Root.CompactCode()
	// The wrapper never gets a summary; its compact view is inlined so the
	// concluded grandchild stays visible.
	assert.Contains(t, compact, "2-2: [stmt] does a thing")
	assert.Contains(t, compact, "3: c")
}

func TestPlaceholderCodeAlwaysUsesMarkers(t *testing.T) {
	col := collectScenario(t)
	sel, ifn, proc := col.Nodes[0], col.Nodes[1], col.Nodes[2]
	require.Equal(t, "create_procedure", proc.Kind)

	sel.Conclude("summarized", "")
	ph := ifn.PlaceholderCode()
	assert.Contains(t, ph, sel.SlotMarker())
	assert.NotContains(t, ph, "summarized")

	ph = proc.PlaceholderCode()
	assert.Contains(t, ph, ifn.SlotMarker())
	assert.Contains(t, ph, "1: stmt 1")
	assert.Contains(t, ph, "20: stmt 20")
	assert.NotContains(t, ph, "7: stmt 7")
}

func TestEstimateTokensMonotonic(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	short := EstimateTokens("SELECT 1")
	long := EstimateTokens("SELECT col_a, col_b, col_c FROM orders WHERE status = 'open'")
	assert.Greater(t, long, short)
}

func TestSourceSpanValidation(t *testing.T) {
	src := NewSource("f.sql", "one\ntwo\nthree")

	_, err := src.Span(3, 2)
	require.Error(t, err)
	_, err = src.Span(0, 1)
	require.Error(t, err)
	_, err = src.Span(2, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds file length")

	lines, err := src.NumberedSpan(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2: two", "3: three"}, lines)
}
