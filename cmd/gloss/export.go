package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dusk-indust/gloss/internal/export"
)

func runExport(flags cliFlags, args []string) error {
	fs := flag.NewFlagSet("gloss export", flag.ContinueOnError)
	format := fs.String("format", "json", "output format: json or mermaid")
	outPath := fs.String("o", "", "write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadProject(flags)
	if err != nil {
		return err
	}

	gp := graphPath(flags, cfg)
	if persistentIndex {
		if _, err := os.Stat(gp); err != nil {
			return fmt.Errorf("no annotation graph at %s\nRun 'gloss annotate <path>' first to build the index", gp)
		}
	}

	sink, err := openSink(gp)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.InitSchema(ctx); err != nil {
		return fmt.Errorf("init graph schema: %w", err)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", *outPath, err)
		}
		defer f.Close()
		out = f
	}

	switch *format {
	case "json":
		return export.WriteJSON(ctx, sink, out)
	case "mermaid":
		diagram, err := export.GenerateMermaid(ctx, sink)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, diagram)
		return err
	default:
		return fmt.Errorf("unknown format %q (expected json or mermaid)", *format)
	}
}
