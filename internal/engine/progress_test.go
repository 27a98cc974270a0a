package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := Event{
		File:       "orders.sql",
		Phase:      PhaseStructural,
		Statements: 12,
		Batches:    3,
	}

	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	// The internal channel buffer is 64. Emitting 100 events must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Emit(Event{File: "orders.sql", Phase: PhaseSemantic, Done: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_Close_ChannelClosed(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()

	pr.Emit(Event{File: "orders.sql", Phase: PhaseFinalize, Message: "done"})
	pr.Close()

	var received []Event
	for ev := range ch {
		received = append(received, ev)
	}
	require.Len(t, received, 1)
	assert.Equal(t, PhaseFinalize, received[0].Phase)
}

func TestFormatProgress_AllPhases(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		expect string
	}{
		{
			name:   "structural",
			event:  Event{File: "orders.sql", Phase: PhaseStructural, Statements: 12, Batches: 3},
			expect: "  ○ orders.sql: 12 statements in 3 batches",
		},
		{
			name:   "semantic",
			event:  Event{File: "orders.sql", Phase: PhaseSemantic, Done: 2, Batches: 3, Line: 40},
			expect: "  ● orders.sql: batch 2/3 (through line 40)",
		},
		{
			name:   "finalize",
			event:  Event{File: "orders.sql", Phase: PhaseFinalize, Message: "process_order summarized"},
			expect: "  ✓ orders.sql: process_order summarized",
		},
		{
			name:   "failed",
			event:  Event{File: "orders.sql", Phase: PhaseFailed, Message: "annotator unreachable"},
			expect: "  ✗ orders.sql: annotator unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, FormatProgress(tt.event))
		})
	}
}
