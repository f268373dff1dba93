package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := flag.String("config", "config.json", "path to config.json")
	inputDir := flag.String("input", "pgn", "input directory with PGN files")
	outputPath := flag.String("output", "tactics.parquet", "output parquet dataset")
	manifestPath := flag.String("manifest", "", "analyzed-games manifest (default: analyzed.json next to output)")
	workers := flag.Int("workers", 0, "worker count override (0 = config value)")
	resume := flag.Bool("resume", true, "skip games already in the manifest")
	filterExpr := flag.String("filter", "", "game filter expression override (e.g. 'WhiteElo >= 1800')")
	flag.Parse()

	cfgPath, repoRoot, err := resolveConfigPath(*configPath)
	if err != nil {
		fatal(err)
	}
	cfg, err := tactics.LoadConfig(cfgPath)
	if err != nil {
		fatal(err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *filterExpr != "" {
		cfg.Filter = *filterExpr
	}
	if !filepath.IsAbs(cfg.SchemaPath) {
		cfg.SchemaPath = filepath.Join(repoRoot, cfg.SchemaPath)
	}

	enginePath, err := tactics.ResolveEnginePath(cfg.Engine, repoRoot)
	if err != nil {
		fatal(err)
	}
	if _, err := os.Stat(enginePath); err != nil {
		fatal(fmt.Errorf("engine binary not found at %s: %w", enginePath, err))
	}

	filter, err := tactics.NewGameFilter(cfg.Filter)
	if err != nil {
		fatal(err)
	}

	if dir := filepath.Dir(*outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal(err)
		}
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopCh)
	go func() {
		<-stopCh
		fmt.Fprintln(os.Stderr, "\nstopping...")
		cancel()
	}()

	coordinator := tactics.NewCoordinator(cfg, enginePath, *inputDir, *outputPath, *manifestPath, *resume, filter)
	summary, err := coordinator.Run(ctx)
	fmt.Fprintln(os.Stderr, summary)
	if err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func resolveConfigPath(arg string) (string, string, error) {
	if arg != "" {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", "", err
		}
		if _, err := os.Stat(abs); err == nil {
			return abs, filepath.Dir(abs), nil
		}
	}
	return tactics.FindConfigPath()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
