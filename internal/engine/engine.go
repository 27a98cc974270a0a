// Package engine drives a parsed statement tree through the annotation
// service: it plans token-bounded batches over the post-order node list,
// dispatches them concurrently under a global bound, applies results in
// batch order, folds finished containers into container summaries, and, in
// transform mode, reassembles rewritten statements into full-file output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/cache"
	"github.com/dusk-indust/gloss/internal/frontend"
	"github.com/dusk-indust/gloss/internal/graph"
	"github.com/dusk-indust/gloss/internal/tree"
)

// FileReport summarizes one file's annotation run.
type FileReport struct {
	File       string
	Statements int // analyzable nodes collected
	Containers int
	Batches    int
	Applied    int
	Forfeited  int
	Finalized  int // containers summarized
	Warnings   []string
	Output     string // reassembled source, transform mode only
	Duration   time.Duration
}

// Engine coordinates annotation runs. It is safe for concurrent use; the
// semaphore bounding annotator calls spans every file the engine touches.
type Engine struct {
	cfg      Config
	port     annotate.Port
	sink     graph.Sink
	cache    *cache.Cache
	sem      *semaphore.Weighted
	progress *ProgressReporter
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache wires an incremental cache: files whose content hash is
// unchanged since their last run are skipped unless Config.Force is set.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates an Engine around an annotation port and a graph sink.
func New(cfg Config, port annotate.Port, sink graph.Sink, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:      cfg,
		port:     port,
		sink:     sink,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		progress: NewProgressReporter(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Progress returns a channel that emits progress events.
func (e *Engine) Progress() <-chan Event {
	return e.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when
// the engine is no longer needed.
func (e *Engine) Close() {
	e.progress.Close()
}

// Run annotates every path in order. File-scoped failures are logged,
// reported per file, and joined into the returned error; a run-scoped
// failure (annotator transport, cancellation) aborts immediately.
func (e *Engine) Run(ctx context.Context, paths []string) ([]*FileReport, error) {
	var reports []*FileReport
	var fileErrs []error

	for _, path := range paths {
		if e.cache != nil && !e.cfg.Force {
			changed, err := e.cache.Changed(path)
			if err != nil {
				fileErrs = append(fileErrs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			if !changed {
				e.logger.Debug("file unchanged, skipping", "file", path)
				continue
			}
		}

		report, err := e.RunFile(ctx, path)
		if err != nil {
			if Classify(err) == SeverityRun {
				return reports, err
			}
			e.logger.Warn("file failed", "file", path, "error", err)
			e.progress.Emit(Event{File: path, Phase: PhaseFailed, Message: err.Error()})
			fileErrs = append(fileErrs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		reports = append(reports, report)

		if e.cache != nil {
			if err := e.cache.MarkAnnotated(path, report.Statements); err != nil {
				e.logger.Warn("cache update failed", "file", path, "error", err)
			}
		}
	}
	return reports, errors.Join(fileErrs...)
}

// RunFile reads, parses, and annotates a single file using the frontend
// registered for its extension.
func (e *Engine) RunFile(ctx context.Context, path string) (*FileReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read %s: %w", path, err)
	}
	fe, err := frontend.ForPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := fe.Parse(path, data)
	if err != nil {
		return nil, err
	}
	src := tree.NewSource(path, string(data))
	return e.RunSource(ctx, src, raw, fe.Dialect())
}

// RunSource annotates an already-parsed source. This is the whole pipeline:
// collect, plan, dispatch with the finalizer alongside, then report (and
// reassemble, in transform mode).
func (e *Engine) RunSource(ctx context.Context, src *tree.Source, raw *tree.RawNode, dialect *tree.Dialect) (*FileReport, error) {
	start := time.Now()

	col, err := tree.Collect(raw, src, dialect)
	if err != nil {
		return nil, err
	}
	batches := Plan(col.Nodes, e.cfg.TokenLimit)

	statements := 0
	for _, n := range col.Nodes {
		if n.Analyzable {
			statements++
		}
	}
	e.progress.Emit(Event{
		File:       src.Name(),
		Phase:      PhaseStructural,
		Statements: statements,
		Batches:    len(batches),
	})

	app := newApplier(e.sink, col, src.Name(), e.cfg.Mode, len(batches), e.progress, e.logger)
	sched := &scheduler{cfg: e.cfg, port: e.port, sem: e.sem, applier: app, file: src.Name()}
	fin := &finalizer{cfg: e.cfg, port: e.port, sink: e.sink, file: src.Name(), progress: e.progress, logger: e.logger}

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Mode == ModeAnalyze {
		g.Go(func() error {
			return fin.run(gctx, app.Ready())
		})
	}
	g.Go(func() error {
		defer app.CloseReady()
		if err := sched.dispatchAll(gctx, batches); err != nil {
			// Keep whatever arrived: apply buffered results out of order so
			// a dead annotator does not throw away finished work.
			if ferr := app.Finalize(context.WithoutCancel(gctx), true); ferr != nil {
				e.logger.Warn("partial flush failed", "file", src.Name(), "error", ferr)
			}
			return err
		}
		return app.Finalize(gctx, false)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applied, forfeited, warnings := app.snapshot()
	report := &FileReport{
		File:       src.Name(),
		Statements: statements,
		Containers: len(col.Containers),
		Batches:    len(batches),
		Applied:    applied,
		Forfeited:  forfeited,
		Finalized:  fin.finalized,
		Warnings:   warnings,
	}

	if e.cfg.Mode == ModeTransform {
		output, reWarnings := tree.Reassemble(col.Nodes, transformedText)
		report.Output = output
		report.Warnings = append(report.Warnings, reWarnings...)
	}

	report.Duration = time.Since(start)
	return report, nil
}

// transformedText picks the reassembly text for a node: the annotator's
// rewrite when one exists, otherwise the node's own skeleton or raw code so
// forfeited statements survive the rewrite verbatim.
func transformedText(n *tree.Node) string {
	if code, ok := n.TransformedCode(); ok {
		return code
	}
	if n.HasChildren() {
		return n.PlaceholderCode()
	}
	return n.RawCode()
}

// Sink exposes the engine's graph sink, for serving queries off the same
// handle the engine writes through.
func (e *Engine) Sink() graph.Sink {
	return e.sink
}
