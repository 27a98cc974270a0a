package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/dusk-indust/gloss/internal/annotate"
	"github.com/dusk-indust/gloss/internal/cache"
	"github.com/dusk-indust/gloss/internal/config"
	"github.com/dusk-indust/gloss/internal/engine"
	"github.com/dusk-indust/gloss/internal/frontend"
	"github.com/dusk-indust/gloss/internal/watcher"
)

func runAnnotate(flags cliFlags, args []string) error {
	fs := flag.NewFlagSet("gloss annotate", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "keep running and re-annotate when files change")
	force := fs.Bool("force", false, "re-annotate files the cache considers unchanged")
	mode := fs.String("mode", "analyze", "analyze or transform")
	out := fs.String("out", "", "directory for transformed files (transform mode)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: gloss annotate [flags] <path ...>")
	}

	cfg, err := loadProject(flags)
	if err != nil {
		return err
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("no annotation endpoint: set endpoint in gloss.yml or pass -endpoint")
	}

	engMode := engine.ModeAnalyze
	switch *mode {
	case "analyze":
	case "transform":
		engMode = engine.ModeTransform
	default:
		return fmt.Errorf("unknown mode %q (expected analyze or transform)", *mode)
	}

	exts := supportedExtensions(cfg)
	files, err := collectFiles(fs.Args(), exts, cfg.ExcludeDirs)
	if err != nil {
		return err
	}
	if len(files) == 0 && !*watch {
		return fmt.Errorf("no annotatable files under %s", strings.Join(fs.Args(), ", "))
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

	opts := []engine.Option{}
	if engMode == engine.ModeAnalyze {
		c, err := cache.Open(cachePath(flags, cfg))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
		opts = append(opts, engine.WithCache(c))
	}

	port := annotate.NewHTTPClient(cfg.Endpoint)
	eng := engine.New(engineConfig(cfg, engMode, *force), port, sink, opts...)

	progressDone := printProgress(eng, cfg.Verbose)

	reports, runErr := eng.Run(ctx, files)
	if err := reportResults(reports, engMode, *out); err != nil {
		eng.Close()
		<-progressDone
		return err
	}
	if runErr == nil && len(reports) < len(files) {
		fmt.Printf("%d of %d files unchanged, skipped (use -force to re-annotate)\n",
			len(files)-len(reports), len(files))
	}

	if *watch && runErr == nil {
		err := watchAndRerun(ctx, eng, cfg, exts, fs.Args(), engMode, *out)
		eng.Close()
		<-progressDone
		return err
	}

	eng.Close()
	<-progressDone
	return runErr
}

// printProgress drains the engine's progress channel on a goroutine.
// Failures always print; the rest only with verbose on. The returned channel
// closes once the engine does.
func printProgress(eng *engine.Engine, verbose bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range eng.Progress() {
			line := engine.FormatProgress(ev)
			switch {
			case ev.Phase == engine.PhaseFailed:
				fmt.Fprintln(os.Stderr, color.RedString("%s", line))
			case verbose && ev.Phase == engine.PhaseFinalize:
				fmt.Println(color.GreenString("%s", line))
			case verbose:
				fmt.Println(line)
			}
		}
	}()
	return done
}

// reportResults prints the per-file summary and, in transform mode, writes
// the reassembled outputs.
func reportResults(reports []*engine.FileReport, mode engine.Mode, outDir string) error {
	for _, rep := range reports {
		fmt.Printf("%s: %d statements, %d batches, %d applied",
			rep.File, rep.Statements, rep.Batches, rep.Applied)
		if rep.Forfeited > 0 {
			fmt.Printf(", %s", color.YellowString("%d forfeited", rep.Forfeited))
		}
		fmt.Printf(" (%.2fs)\n", rep.Duration.Seconds())
		for _, w := range rep.Warnings {
			fmt.Println(color.YellowString("  warning: %s", w))
		}
		if mode == engine.ModeTransform && rep.Output != "" {
			dest, err := writeOutput(rep.File, rep.Output, outDir)
			if err != nil {
				return err
			}
			fmt.Printf("  wrote %s\n", dest)
		}
	}
	return nil
}

// writeOutput writes transformed text under outDir keeping the base name,
// or next to the source as name.glossed.ext when outDir is empty.
func writeOutput(src, text, outDir string) (string, error) {
	base := filepath.Base(src)
	var dest string
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", outDir, err)
		}
		dest = filepath.Join(outDir, base)
	} else {
		ext := filepath.Ext(base)
		dest = filepath.Join(filepath.Dir(src), strings.TrimSuffix(base, ext)+".glossed"+ext)
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

// watchAndRerun blocks, re-annotating changed files as each burst settles.
func watchAndRerun(ctx context.Context, eng *engine.Engine, cfg *config.ProjectConfig, exts, roots []string, mode engine.Mode, outDir string) error {
	w, err := watcher.New(watcher.Options{
		Extensions:  exts,
		ExcludeDirs: cfg.ExcludeDirs,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		dir := root
		if !info.IsDir() {
			dir = filepath.Dir(root)
		}
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	fmt.Println("watching for changes (ctrl-c to stop)")
	return w.Run(ctx, func(paths []string) {
		reports, err := eng.Run(ctx, paths)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("re-annotate: %v", err))
		}
		if err := reportResults(reports, mode, outDir); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		}
	})
}

// supportedExtensions returns the extensions to annotate, narrowed to the
// configured languages when gloss.yml names any.
func supportedExtensions(cfg *config.ProjectConfig) []string {
	all := frontend.SupportedExtensions()
	if len(cfg.Languages) == 0 {
		sort.Strings(all)
		return all
	}
	langs := make(map[string]bool, len(cfg.Languages))
	for _, l := range cfg.Languages {
		langs[strings.ToLower(l)] = true
	}
	var exts []string
	for _, ext := range all {
		fe, err := frontend.ForPath("any" + ext)
		if err == nil && langs[fe.Language()] {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// collectFiles expands path arguments: files are taken as given, directories
// are walked for matching extensions, skipping excluded directory names.
func collectFiles(paths, exts, excludeDirs []string) ([]string, error) {
	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted[ext] = true
	}
	excluded := map[string]bool{
		"vendor": true, ".git": true, "node_modules": true,
		"build": true, "dist": true, "tmp": true,
	}
	for _, d := range excludeDirs {
		excluded[d] = true
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if excluded[filepath.Base(path)] {
					return filepath.SkipDir
				}
				return nil
			}
			if wanted[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
