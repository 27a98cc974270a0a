package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dusk-indust/gloss/internal/cache"
	"github.com/dusk-indust/gloss/internal/status"
)

func runStatus(flags cliFlags) error {
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

	var c *cache.Cache
	cp := cachePath(flags, cfg)
	if _, statErr := os.Stat(cp); statErr == nil {
		c, err = cache.Open(cp)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
	}

	rep, err := status.Collect(ctx, sink, c)
	if err != nil {
		return err
	}
	fmt.Print(status.Render(rep, !flags.NoColor))
	return nil
}
