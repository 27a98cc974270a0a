package engine

import "fmt"

// Phase identifies where a file is in its annotation run.
type Phase string

const (
	// PhaseStructural: the tree has been collected and batches planned.
	PhaseStructural Phase = "structural"
	// PhaseSemantic: batch results are being applied.
	PhaseSemantic Phase = "semantic"
	// PhaseFinalize: container summaries are being folded.
	PhaseFinalize Phase = "finalize"
	// PhaseFailed: the file's run ended with an error.
	PhaseFailed Phase = "failed"
)

// Event is emitted to the user during an annotation run.
type Event struct {
	File       string
	Phase      Phase
	Statements int
	Batches    int // total planned batches
	Done       int // batches applied so far
	Line       int // highest source line covered so far
	Message    string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan Event
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan Event, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event Event) {
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan Event {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats an Event as a human-readable status line.
func FormatProgress(event Event) string {
	switch event.Phase {
	case PhaseStructural:
		return fmt.Sprintf("  ○ %s: %d statements in %d batches", event.File, event.Statements, event.Batches)
	case PhaseSemantic:
		return fmt.Sprintf("  ● %s: batch %d/%d (through line %d)", event.File, event.Done, event.Batches, event.Line)
	case PhaseFinalize:
		return fmt.Sprintf("  ✓ %s: %s", event.File, event.Message)
	case PhaseFailed:
		return fmt.Sprintf("  ✗ %s: %s", event.File, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown phase)", event.File)
	}
}
