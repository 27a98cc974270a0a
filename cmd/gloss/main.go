package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/dusk-indust/gloss/internal/config"
	"github.com/dusk-indust/gloss/internal/engine"
)

// cliFlags are the global flags shared by every subcommand.
type cliFlags struct {
	ProjectRoot string
	Endpoint    string
	Verbose     bool
	NoColor     bool
	ServeMCP    bool
	MCPAddr     string
	Version     bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("gloss", flag.ContinueOnError)
	fs.StringVar(&flags.ProjectRoot, "project-root", ".", "path to the annotated project")
	fs.StringVar(&flags.Endpoint, "endpoint", "", "annotation service URL (overrides gloss.yml)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "print per-batch progress")
	fs.BoolVar(&flags.NoColor, "no-color", false, "disable colorized output")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as an MCP server on stdio")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over HTTP on this address instead of stdio")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.NoColor {
		color.NoColor = true
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}
	if flags.ServeMCP {
		return runServeMCP(flags)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: gloss [flags] <init|annotate|status|export> ...")
	}

	switch rest[0] {
	case "init":
		return runInit(flags, rest[1:])
	case "annotate":
		return runAnnotate(flags, rest[1:])
	case "status":
		return runStatus(flags)
	case "export":
		return runExport(flags, rest[1:])
	case "version":
		fmt.Println(version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (expected init, annotate, status, or export)", rest[0])
	}
}

// loadProject reads gloss.yml from the project root and overlays flags.
func loadProject(flags cliFlags) (*config.ProjectConfig, error) {
	cfg, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.Endpoint != "" {
		cfg.Endpoint = flags.Endpoint
	}
	if flags.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// graphPath resolves the on-disk location of the annotation graph.
func graphPath(flags cliFlags, cfg *config.ProjectConfig) string {
	if cfg.GraphPath != "" {
		return cfg.GraphPath
	}
	return filepath.Join(flags.ProjectRoot, ".gloss", "graph")
}

// cachePath resolves the on-disk location of the incremental-run cache.
func cachePath(flags cliFlags, cfg *config.ProjectConfig) string {
	if cfg.CachePath != "" {
		return cfg.CachePath
	}
	return filepath.Join(flags.ProjectRoot, ".gloss", "cache.db")
}

// engineConfig maps project settings onto engine tuning knobs.
func engineConfig(cfg *config.ProjectConfig, mode engine.Mode, force bool) engine.Config {
	return engine.Config{
		TokenLimit:      cfg.TokenLimit,
		GroupTokenLimit: cfg.GroupTokenLimit,
		MaxConcurrency:  cfg.MaxConcurrency,
		Locale:          cfg.Locale,
		Mode:            mode,
		Force:           force,
	}
}
