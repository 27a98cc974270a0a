package mcptools

import "github.com/dusk-indust/gloss/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// AnnotateFileInput is the input for the annotate_file MCP tool.
type AnnotateFileInput struct {
	Path string `json:"path" jsonschema:"path to the source file to annotate"`
}

// AnnotateFileOutput is the result of the annotate_file MCP tool.
type AnnotateFileOutput struct {
	File       string   `json:"file"`
	Skipped    bool     `json:"skipped,omitempty"` // content unchanged since the last run
	Statements int      `json:"statements"`
	Containers int      `json:"containers"`
	Batches    int      `json:"batches"`
	Applied    int      `json:"applied"`
	Forfeited  int      `json:"forfeited"`
	Finalized  int      `json:"finalized"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ListContainersInput is the input for the list_containers MCP tool.
type ListContainersInput struct {
	File string `json:"file,omitempty" jsonschema:"limit to containers of one file (default: all files)"`
}

// ListContainersOutput is the result of the list_containers MCP tool.
type ListContainersOutput struct {
	Containers []graph.ContainerRecord `json:"containers"`
	Total      int                     `json:"total"`
}

// GetContainerSummaryInput is the input for the get_container_summary MCP tool.
type GetContainerSummaryInput struct {
	Key string `json:"key" jsonschema:"container key in the form file/name:startLine"`
}

// GetContainerSummaryOutput is the result of the get_container_summary MCP tool.
type GetContainerSummaryOutput struct {
	Container graph.ContainerRecord `json:"container"`
}

// GetStatementsInput is the input for the get_statements MCP tool.
type GetStatementsInput struct {
	File string `json:"file" jsonschema:"file whose statement summaries to return"`
}

// GetStatementsOutput is the result of the get_statements MCP tool.
type GetStatementsOutput struct {
	Statements []graph.StatementRecord `json:"statements"`
	Total      int                     `json:"total"`
}

// RelatedContainersInput is the input for the related_containers MCP tool.
type RelatedContainersInput struct {
	Key string `json:"key" jsonschema:"container key to rank other containers against"`
}

// RelatedContainersOutput is the result of the related_containers MCP tool.
type RelatedContainersOutput struct {
	Related []graph.RelatedContainer `json:"related"`
}

// IndexStatsInput is the input for the index_stats MCP tool.
type IndexStatsInput struct{}

// IndexStatsOutput is the result of the index_stats MCP tool.
type IndexStatsOutput struct {
	Stats graph.SinkStats `json:"stats"`
}
