package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with all 6 annotation tools registered.
func NewServer(svc *AnnotateService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "gloss-annotate",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "annotate_file",
		Description: "Annotate one source file: parse it into a statement tree, batch the statements through the annotator, and persist the summaries to the graph. Files whose content is unchanged since the last run are skipped.",
	}, svc.AnnotateFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_containers",
		Description: "List annotated containers (procedures, functions, classes), optionally narrowed to one file.",
	}, svc.ListContainers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_container_summary",
		Description: "Fetch one container by key, including its folded summary.",
	}, svc.GetContainerSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_statements",
		Description: "Return the statement summaries recorded for a file, ordered by start line.",
	}, svc.GetStatements)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "related_containers",
		Description: "Rank other containers by the tables, views, and routines they share with the given container.",
	}, svc.RelatedContainers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Return counts of statements, containers, entities, and edges in the annotation graph.",
	}, svc.IndexStats)

	return server
}

// RunMCPServer starts an HTTP server exposing the annotation MCP tools.
func RunMCPServer(ctx context.Context, svc *AnnotateService, addr string) error {
	server := NewServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *AnnotateService) error {
	return NewServer(svc).Run(ctx, &mcp.StdioTransport{})
}
