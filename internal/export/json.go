package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/gloss/internal/graph"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	ExportedAt string          `json:"exportedAt"`
	Stats      graph.SinkStats `json:"stats"`
	Files      []FileExport    `json:"files,omitempty"`
}

// FileExport groups one annotated file's containers and statements.
type FileExport struct {
	File       string                  `json:"file"`
	Containers []graph.ContainerRecord `json:"containers,omitempty"`
	Statements []graph.StatementRecord `json:"statements,omitempty"`
}

// ExportGraph builds a GraphExport from the annotation sink.
func ExportGraph(ctx context.Context, sink graph.Sink) (*GraphExport, error) {
	files, err := sink.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	stats, err := sink.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", err)
	}

	export := &GraphExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Stats:      *stats,
	}

	for _, file := range files {
		containers, err := sink.ContainersForFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("containers for %s: %w", file, err)
		}
		statements, err := sink.StatementsForFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("statements for %s: %w", file, err)
		}
		export.Files = append(export.Files, FileExport{
			File:       file,
			Containers: containers,
			Statements: statements,
		})
	}

	return export, nil
}

// WriteJSON writes the export document to w as indented JSON.
func WriteJSON(ctx context.Context, sink graph.Sink, w io.Writer) error {
	doc, err := ExportGraph(ctx, sink)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
