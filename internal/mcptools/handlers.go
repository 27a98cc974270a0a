package mcptools

import (
	"context"
	"fmt"

	"github.com/dusk-indust/gloss/internal/engine"
	"github.com/dusk-indust/gloss/internal/graph"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Annotator runs the annotation pipeline for annotate_file. Satisfied by
// *engine.Engine.
type Annotator interface {
	Run(ctx context.Context, paths []string) ([]*engine.FileReport, error)
}

// AnnotateService holds the graph sink and the pipeline runner used by MCP
// tool handlers.
type AnnotateService struct {
	sink   graph.Sink
	runner Annotator
}

// NewAnnotateService creates an AnnotateService with the given sink and runner.
func NewAnnotateService(sink graph.Sink, runner Annotator) *AnnotateService {
	return &AnnotateService{sink: sink, runner: runner}
}

// AnnotateFile runs the annotation pipeline on a single file and reports what
// was applied. A file whose content hash is unchanged comes back skipped.
func (s *AnnotateService) AnnotateFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnnotateFileInput,
) (*mcp.CallToolResult, AnnotateFileOutput, error) {
	if input.Path == "" {
		return nil, AnnotateFileOutput{}, fmt.Errorf("path is required")
	}

	reports, err := s.runner.Run(ctx, []string{input.Path})
	if err != nil {
		return nil, AnnotateFileOutput{}, err
	}
	if len(reports) == 0 {
		return nil, AnnotateFileOutput{File: input.Path, Skipped: true}, nil
	}

	r := reports[0]
	return nil, AnnotateFileOutput{
		File:       r.File,
		Statements: r.Statements,
		Containers: r.Containers,
		Batches:    r.Batches,
		Applied:    r.Applied,
		Forfeited:  r.Forfeited,
		Finalized:  r.Finalized,
		Warnings:   r.Warnings,
	}, nil
}

// ListContainers returns annotated containers, optionally narrowed to one file.
func (s *AnnotateService) ListContainers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListContainersInput,
) (*mcp.CallToolResult, ListContainersOutput, error) {
	var (
		containers []graph.ContainerRecord
		err        error
	)
	if input.File != "" {
		containers, err = s.sink.ContainersForFile(ctx, input.File)
	} else {
		containers, err = s.sink.AllContainers(ctx)
	}
	if err != nil {
		return nil, ListContainersOutput{}, fmt.Errorf("list containers: %w", err)
	}

	return nil, ListContainersOutput{
		Containers: containers,
		Total:      len(containers),
	}, nil
}

// GetContainerSummary fetches one container by key.
func (s *AnnotateService) GetContainerSummary(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetContainerSummaryInput,
) (*mcp.CallToolResult, GetContainerSummaryOutput, error) {
	if input.Key == "" {
		return nil, GetContainerSummaryOutput{}, fmt.Errorf("key is required")
	}

	rec, err := s.sink.GetContainer(ctx, input.Key)
	if err != nil {
		return nil, GetContainerSummaryOutput{}, fmt.Errorf("get container: %w", err)
	}
	if rec == nil {
		return nil, GetContainerSummaryOutput{}, fmt.Errorf("container not found: %s", input.Key)
	}

	return nil, GetContainerSummaryOutput{Container: *rec}, nil
}

// GetStatements returns a file's statement summaries ordered by start line.
func (s *AnnotateService) GetStatements(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetStatementsInput,
) (*mcp.CallToolResult, GetStatementsOutput, error) {
	if input.File == "" {
		return nil, GetStatementsOutput{}, fmt.Errorf("file is required")
	}

	statements, err := s.sink.StatementsForFile(ctx, input.File)
	if err != nil {
		return nil, GetStatementsOutput{}, fmt.Errorf("get statements: %w", err)
	}

	return nil, GetStatementsOutput{
		Statements: statements,
		Total:      len(statements),
	}, nil
}

// RelatedContainers ranks other containers by shared entity references.
func (s *AnnotateService) RelatedContainers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RelatedContainersInput,
) (*mcp.CallToolResult, RelatedContainersOutput, error) {
	if input.Key == "" {
		return nil, RelatedContainersOutput{}, fmt.Errorf("key is required")
	}

	related, err := graph.RelatedContainers(ctx, s.sink, input.Key)
	if err != nil {
		return nil, RelatedContainersOutput{}, fmt.Errorf("related containers: %w", err)
	}

	return nil, RelatedContainersOutput{Related: related}, nil
}

// IndexStats returns counts over the annotation graph.
func (s *AnnotateService) IndexStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexStatsInput,
) (*mcp.CallToolResult, IndexStatsOutput, error) {
	stats, err := s.sink.Stats(ctx)
	if err != nil {
		return nil, IndexStatsOutput{}, fmt.Errorf("stats: %w", err)
	}

	return nil, IndexStatsOutput{Stats: *stats}, nil
}
