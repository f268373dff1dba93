package tactics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Summary is the per-run accounting the coordinator reports.
type Summary struct {
	GamesAnalyzed int64
	GamesFailed   int64
	GamesSkipped  int64 // already in the manifest
	GamesFiltered int64
	Records       int64
	PliesSkipped  int64
	PliesFailed   int64
	CacheHits     int64
	CacheMisses   int64
	Elapsed       time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"analyzed=%d failed=%d skipped=%d filtered=%d records=%d plies_skipped=%d plies_failed=%d cache_hits=%d cache_misses=%d elapsed=%s",
		s.GamesAnalyzed, s.GamesFailed, s.GamesSkipped, s.GamesFiltered,
		s.Records, s.PliesSkipped, s.PliesFailed, s.CacheHits, s.CacheMisses,
		s.Elapsed.Round(time.Second))
}

// Coordinator distributes whole games across a fixed-size worker pool.
// Parallelism is per game, never per move: each worker owns a dedicated
// engine process and its own evaluation cache, so an engine crash is
// isolated to one worker and cross-worker state is limited to the
// analyzed-games manifest.
type Coordinator struct {
	cfg          Config
	enginePath   string
	inputDir     string
	outputPath   string
	manifestPath string
	resume       bool
	filter       *GameFilter
}

// NewCoordinator builds a coordinator for one batch run.
func NewCoordinator(cfg Config, enginePath, inputDir, outputPath, manifestPath string, resume bool, filter *GameFilter) *Coordinator {
	if manifestPath == "" {
		manifestPath = DefaultManifestPath(outputPath)
	}
	return &Coordinator{
		cfg:          cfg,
		enginePath:   enginePath,
		inputDir:     inputDir,
		outputPath:   outputPath,
		manifestPath: manifestPath,
		resume:       resume,
		filter:       filter,
	}
}

// Run analyzes every unanalyzed game under the input directory. Per-game
// failures are contained; the only fatal error is an engine that cannot be
// started, since no analysis can proceed without it.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var summary Summary

	files, err := CollectPGN(c.inputDir)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		return summary, fmt.Errorf("no .pgn files found in %s", c.inputDir)
	}

	manifest := NewManifest()
	if c.resume {
		manifest, err = LoadManifest(c.manifestPath)
		if err != nil {
			return summary, err
		}
	}
	// The producer consults a snapshot so the writer goroutine stays the
	// manifest's only mutator.
	analyzed := make(map[string]struct{}, len(manifest.Analyzed))
	for id := range manifest.Analyzed {
		analyzed[id] = struct{}{}
	}

	outputTarget := c.outputPath
	resumeFromExisting := false
	if c.resume {
		if _, err := os.Stat(c.outputPath); err == nil {
			resumeFromExisting = true
			outputTarget = c.outputPath + ".tmp"
		}
	}

	workers := c.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var gamesAnalyzed, gamesFailed, gamesSkipped, gamesFiltered int64
	var records, pliesSkipped, pliesFailed int64
	var cacheHits, cacheMisses int64
	var processed int64

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan *SourceGame, c.cfg.PageSize)
	results := make(chan *GameReport, workers)

	g.Go(func() error {
		defer close(jobs)
		for _, path := range files {
			games, err := LoadGames(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
				continue
			}
			for i := range games {
				game := &games[i]
				if _, ok := analyzed[game.ID]; ok {
					atomic.AddInt64(&gamesSkipped, 1)
					continue
				}
				matched, err := c.filter.Match(game)
				if err != nil {
					fmt.Fprintf(os.Stderr, "filter error on %s: %v\n", game.ID, err)
					matched = false
				}
				if !matched {
					atomic.AddInt64(&gamesFiltered, 1)
					continue
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case jobs <- game:
				}
			}
		}
		return nil
	})

	var workerWg sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWg.Add(1)
		g.Go(func() error {
			defer workerWg.Done()
			evaluator, err := NewEvaluator(ctx, c.enginePath, time.Duration(c.cfg.EvalTimeoutMs)*time.Millisecond)
			if err != nil {
				return err
			}
			defer evaluator.Close()
			cache := NewEvalCache(c.cfg.CacheCapacity)
			defer func() {
				hits, misses := cache.Stats()
				atomic.AddInt64(&cacheHits, hits)
				atomic.AddInt64(&cacheMisses, misses)
			}()
			analyzer := NewGameAnalyzer(evaluator, cache, NewSelector(c.cfg.BudgetConfig()), NewComparator(c.cfg.LabelCutoffs(), c.cfg.MateHorizon))

			for game := range jobs {
				gameStart := time.Now()
				report, err := analyzer.AnalyzeGame(ctx, game)
				elapsed := time.Since(gameStart).Round(time.Millisecond)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					if errors.Is(err, ErrEngineUnavailable) {
						return err
					}
					fmt.Fprintf(os.Stderr, "failed to analyze %s (%s): %v\n", game.ID, elapsed, err)
					atomic.AddInt64(&gamesFailed, 1)
					atomic.AddInt64(&processed, 1)
					continue
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case results <- report:
				}
				fmt.Fprintf(os.Stderr, "analyzed %s (%s)\n", game.ID, elapsed)
				atomic.AddInt64(&processed, 1)
			}
			return nil
		})
	}

	g.Go(func() error {
		workerWg.Wait()
		close(results)
		return nil
	})

	g.Go(func() error {
		w, err := NewDatasetWriter(outputTarget, c.cfg.SchemaPath, int64(workers))
		if err != nil {
			return err
		}
		if resumeFromExisting {
			// Carry prior rows into the new file; only rows whose game is
			// marked analyzed survive, which drops any partial leftovers
			// from an interrupted run.
			existing, err := ReadDataset(c.outputPath, int64(workers))
			if err != nil {
				return err
			}
			for _, record := range existing {
				if !manifest.IsAnalyzed(record.GameID) {
					continue
				}
				if err := w.WriteRecord(record); err != nil {
					return err
				}
			}
		}
		for report := range results {
			if err := w.WriteGame(report); err != nil {
				// The game stays unmarked and is retried on the next run.
				fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", report.GameID, err)
				atomic.AddInt64(&gamesFailed, 1)
				continue
			}
			manifest.MarkAnalyzed(report.GameID, int32(len(report.Records)))
			atomic.AddInt64(&gamesAnalyzed, 1)
			atomic.AddInt64(&records, int64(len(report.Records)))
			atomic.AddInt64(&pliesSkipped, int64(report.PliesSkipped))
			atomic.AddInt64(&pliesFailed, int64(report.PliesFailed))
		}
		return persistRun(w, manifest, c.manifestPath, outputTarget, c.outputPath)
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "\rgames processed: %d", atomic.LoadInt64(&processed))
			}
		}
	}()

	runErr := g.Wait()
	close(done)
	fmt.Fprintf(os.Stderr, "\rgames processed: %d\n", atomic.LoadInt64(&processed))

	summary = Summary{
		GamesAnalyzed: atomic.LoadInt64(&gamesAnalyzed),
		GamesFailed:   atomic.LoadInt64(&gamesFailed),
		GamesSkipped:  atomic.LoadInt64(&gamesSkipped),
		GamesFiltered: atomic.LoadInt64(&gamesFiltered),
		Records:       atomic.LoadInt64(&records),
		PliesSkipped:  atomic.LoadInt64(&pliesSkipped),
		PliesFailed:   atomic.LoadInt64(&pliesFailed),
		CacheHits:     atomic.LoadInt64(&cacheHits),
		CacheMisses:   atomic.LoadInt64(&cacheMisses),
		Elapsed:       time.Since(start),
	}
	return summary, runErr
}

// persistRun makes a completed run durable, strictly in order: the dataset
// footer first, then the rename over a resumed file, then the manifest.
// Rows in an unclosed parquet file are unreadable, so the manifest must
// only ever name games whose rows are already on disk.
func persistRun(w *DatasetWriter, manifest *Manifest, manifestPath, outputTarget, outputPath string) error {
	if err := w.Close(); err != nil {
		return err
	}
	if outputTarget != outputPath {
		if err := os.Rename(outputTarget, outputPath); err != nil {
			return err
		}
	}
	return manifest.Save(manifestPath)
}
