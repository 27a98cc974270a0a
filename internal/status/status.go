package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dusk-indust/gloss/internal/cache"
	"github.com/dusk-indust/gloss/internal/graph"
)

// Report aggregates everything the status command prints.
type Report struct {
	Graph graph.SinkStats
	Files []FileStatus
	Cache *cache.Stats // nil when no cache is configured
}

// FileStatus is the per-file roll-up shown in the file table.
type FileStatus struct {
	File       string
	Containers int
	Statements int
}

// Collect gathers graph and cache statistics for rendering. The cache is
// optional; pass nil when running without one.
func Collect(ctx context.Context, sink graph.Sink, c *cache.Cache) (*Report, error) {
	stats, err := sink.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	rep := &Report{Graph: *stats}

	files, err := sink.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	for _, f := range files {
		containers, err := sink.ContainersForFile(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("containers for %s: %w", f, err)
		}
		statements, err := sink.StatementsForFile(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("statements for %s: %w", f, err)
		}
		rep.Files = append(rep.Files, FileStatus{
			File:       f,
			Containers: len(containers),
			Statements: len(statements),
		})
	}

	if c != nil {
		cs, err := c.Stats()
		if err != nil {
			return nil, fmt.Errorf("cache stats: %w", err)
		}
		rep.Cache = &cs
	}

	return rep, nil
}

// Render formats the report for terminal output. Counts are padded before
// coloring so ANSI escapes do not break column alignment.
func Render(rep *Report, useColors bool) string {
	head := fmt.Sprint
	num := fmt.Sprint
	if useColors {
		head = color.New(color.FgCyan, color.Bold).SprintFunc()
		num = color.New(color.FgGreen).SprintFunc()
	}

	var sb strings.Builder

	if rep.Graph.StatementCount == 0 && rep.Graph.ContainerCount == 0 {
		sb.WriteString("No annotations recorded.\n")
		sb.WriteString("Run 'gloss annotate <path>' to build the index.\n")
		if rep.Cache != nil {
			writeCache(&sb, rep.Cache, head, num)
		}
		return sb.String()
	}

	sb.WriteString(head("Annotation index") + "\n")
	sb.WriteString(fmt.Sprintf("  Statements: %s\n", num(rep.Graph.StatementCount)))
	sb.WriteString(fmt.Sprintf("  Containers: %s\n", num(rep.Graph.ContainerCount)))
	sb.WriteString(fmt.Sprintf("  Entities:   %s\n", num(rep.Graph.EntityCount)))
	sb.WriteString(fmt.Sprintf("  Edges:      %s\n", num(rep.Graph.EdgeCount)))

	if len(rep.Files) > 0 {
		sb.WriteString("\n" + head("Files") + "\n")
		width := 0
		for _, f := range rep.Files {
			if len(f.File) > width {
				width = len(f.File)
			}
		}
		for _, f := range rep.Files {
			sb.WriteString(fmt.Sprintf("  %-*s  %s containers  %s statements\n",
				width, f.File,
				num(fmt.Sprintf("%3d", f.Containers)),
				num(fmt.Sprintf("%4d", f.Statements))))
		}
	}

	if rep.Cache != nil {
		writeCache(&sb, rep.Cache, head, num)
	}

	return sb.String()
}

func writeCache(sb *strings.Builder, cs *cache.Stats, head, num func(...interface{}) string) {
	lastRun := "never"
	if !cs.LastRun.IsZero() {
		lastRun = cs.LastRun.UTC().Format(time.RFC3339)
	}
	sb.WriteString("\n" + head("Cache") + "\n")
	sb.WriteString(fmt.Sprintf("  Files:      %s\n", num(cs.Files)))
	sb.WriteString(fmt.Sprintf("  Statements: %s\n", num(cs.Statements)))
	sb.WriteString(fmt.Sprintf("  Last run:   %s\n", lastRun))
}
