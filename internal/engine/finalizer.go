package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/graph"
	"github.com/dusk-indust/gloss/internal/tree"
)

// finalizer is the dedicated worker that folds container fragments into
// container-level summaries. It runs on its own goroutine, consuming the
// applier's ready queue, so group calls to the annotator overlap with batch
// dispatch instead of trailing it.
type finalizer struct {
	cfg      Config
	port     annotate.Port
	sink     graph.Sink
	file     string
	progress *ProgressReporter
	logger   *slog.Logger

	finalized int
}

// run consumes container work until the queue closes or the context dies.
func (f *finalizer) run(ctx context.Context, ready <-chan ContainerWork) error {
	for {
		select {
		case w, ok := <-ready:
			if !ok {
				return nil
			}
			if err := f.finalize(ctx, w); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// finalize folds one container's fragments into a single summary and
// persists the container record. Fragments are folded in rounds: each round
// chunks the list under the group token limit, summarizes every chunk, and
// feeds the chunk summaries into the next round until one remains.
func (f *finalizer) finalize(ctx context.Context, w ContainerWork) error {
	c := w.Container
	if len(w.Fragments) == 0 {
		// Every descendant was forfeited; there is nothing to fold.
		f.logger.Warn("container has no fragments, skipping summary",
			"file", f.file, "container", c.Key)
		return nil
	}

	fragments := w.Fragments
	for {
		chunks := chunkFragments(fragments, f.cfg.GroupTokenLimit)
		folded := make([]string, len(chunks))
		for i, chunk := range chunks {
			summary, err := f.port.SummarizeGroup(ctx, annotate.GroupRequest{
				Container: c.Name,
				Kind:      c.Kind,
				Fragments: chunk,
				Locale:    f.cfg.Locale,
			})
			if err != nil {
				return fmt.Errorf("engine: summarize container %s: %w", c.Key, err)
			}
			folded[i] = summary
		}
		fragments = folded
		if len(fragments) == 1 {
			break
		}
	}

	rec := graph.ContainerRecord{
		Key:       c.Key,
		Name:      c.Name,
		Kind:      c.Kind,
		File:      f.file,
		StartLine: c.StartLine,
		EndLine:   c.EndLine,
		Summary:   fragments[0],
	}
	if err := f.sink.UpsertContainer(ctx, rec); err != nil {
		return fmt.Errorf("engine: persist container %s: %w", c.Key, err)
	}

	f.finalized++
	f.progress.Emit(Event{
		File:    f.file,
		Phase:   PhaseFinalize,
		Message: fmt.Sprintf("%s summarized", c.Name),
	})
	return nil
}

// chunkFragments splits fragments into runs whose estimated token cost
// stays under limit. When more than one fragment remains, a chunk takes at
// least two of them, so every folding round strictly shrinks the list even
// if single fragments exceed the limit.
func chunkFragments(fragments []string, limit int) [][]string {
	if len(fragments) <= 1 {
		return [][]string{fragments}
	}
	var chunks [][]string
	var current []string
	tokens := 0
	for _, frag := range fragments {
		cost := tree.EstimateTokens(frag)
		if len(current) >= 2 && tokens+cost > limit {
			chunks = append(chunks, current)
			current = nil
			tokens = 0
		}
		current = append(current, frag)
		tokens += cost
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
