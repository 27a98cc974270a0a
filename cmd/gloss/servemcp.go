package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/cache"
	"github.com/dusk-indust/gloss/internal/engine"
	"github.com/dusk-indust/gloss/internal/mcptools"
)

// runServeMCP exposes the annotate and query tools over MCP: stdio transport
// by default for editor integration, streamable HTTP with -mcp-addr.
func runServeMCP(flags cliFlags) error {
	cfg, err := loadProject(flags)
	if err != nil {
		return err
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("no annotation endpoint: set endpoint in gloss.yml or pass -endpoint")
	}

	sink, err := openSink(graphPath(flags, cfg))
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.InitSchema(ctx); err != nil {
		return fmt.Errorf("init graph schema: %w", err)
	}

	c, err := cache.Open(cachePath(flags, cfg))
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer c.Close()

	// The stdio transport owns stdout; keep logs on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	port := annotate.NewHTTPClient(cfg.Endpoint)
	eng := engine.New(engineConfig(cfg, engine.ModeAnalyze, false), port, sink,
		engine.WithLogger(logger), engine.WithCache(c))
	defer eng.Close()

	svc := mcptools.NewAnnotateService(sink, eng)

	if flags.MCPAddr != "" {
		logger.Info("serving MCP over HTTP", "addr", flags.MCPAddr)
		return mcptools.RunMCPServer(ctx, svc, flags.MCPAddr)
	}
	return mcptools.RunMCPServerStdio(ctx, svc)
}
