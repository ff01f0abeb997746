package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/docindex"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/httpapi"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/normalize"
	"github.com/poiesic/docindex/reembed"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func openSystem(c *cli.Context) (*docindex.System, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	sys, err := docindex.Open(c.Context, cfg, docindex.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open docindex: %w", err)
	}
	return sys, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	cfg := sys.Config()
	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	server, err := httpapi.NewServer(sys, sys.Searcher(),
		&httpapi.Config{Addr: addr, UploadDir: cfg.Server.UploadDir},
		httpapi.WithGatherer(sys.Registry()),
		httpapi.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	var watcher *ingestion.Watcher
	if c.Bool("watch") {
		watcher, err = ingestion.NewWatcher(cfg.Server.UploadDir, sys, ingestion.WithWatcherLogger(slog.Default()))
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	if watcher != nil {
		g.Go(func() error { return watcher.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one FILE is required")
	}
	attempts := c.Int("retries")
	if attempts <= 0 {
		return fmt.Errorf("retries must be greater than 0")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	var failed []error
	for _, path := range c.Args().Slice() {
		res, err := ingestFile(c.Context, sys.Pipeline(), path, attempts, c.Duration("retry-delay"))
		switch {
		case errors.Is(err, core.ErrUnsupportedFiletype):
			fmt.Fprintf(c.App.Writer, "%s: skipped (unsupported filetype)\n", path)
		case err != nil:
			fmt.Fprintf(c.App.Writer, "%s: failed: %v\n", path, err)
			failed = append(failed, err)
		default:
			fmt.Fprintf(c.App.Writer, "%s: %s, %d added, %d duplicates rejected\n",
				path, res.State, res.ChunksAdded, res.DuplicatesRejected)
		}
	}
	if len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", len(failed), c.NArg()), 1)
	}
	return nil
}

// fileIngester is the part of ingestion.Pipeline the ingest command drives.
type fileIngester interface {
	Ingest(ctx context.Context, path string) (*ingestion.Result, error)
}

// ingestFile retries only failures a second attempt can fix. A failed
// normalization leaves the source in place, and rows whose upsert failed
// stay pending until the next run indexes them.
func ingestFile(ctx context.Context, ing fileIngester, path string, attempts int, delay time.Duration) (*ingestion.Result, error) {
	var res *ingestion.Result
	err := reembed.RetryWithBackoff(ctx, func() error {
		r, err := ing.Ingest(ctx, path)
		res = r
		if err == nil {
			return nil
		}
		var perr *ingestion.PipelineError
		if errors.As(err, &perr) && (perr.Stage == ingestion.StateNormalized || perr.Stage == ingestion.StateIndexed) {
			return err
		}
		return reembed.Permanent(err)
	}, attempts, delay)
	return res, err
}

func queryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one TEXT argument is required")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	hits, err := sys.Searcher().Search(c.Context, c.Args().First(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printHits(c.App.Writer, hits, c.Bool("scores"))
	return nil
}

func printHits(w io.Writer, hits []core.SearchHit, scores bool) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No context found")
		return
	}
	for i, h := range hits {
		if scores {
			fmt.Fprintf(w, "[%d] score=%.4f %s\n", i+1, h.Score, h.Metadata)
		} else {
			fmt.Fprintf(w, "[%d]\n", i+1)
		}
		fmt.Fprintln(w, h.Text)
		fmt.Fprintln(w)
	}
}

func reembedCommand(c *cli.Context) error {
	rc := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := validateReembedConfig(rc); err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	reembedder, err := sys.NewReembedder(rc, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	cfg := sys.Config()
	fmt.Fprintf(os.Stderr, "Checkpoint: %s (%s, table %s)\n", cfg.Checkpoint.Path, cfg.Checkpoint.Backend, cfg.Checkpoint.Table)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintf(os.Stderr, "Collection: %s (%s)\n", cfg.Index.Collection, cfg.Index.Backend)
	fmt.Fprintln(os.Stderr)

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func validateReembedConfig(rc *reembed.Config) error {
	if rc.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rc.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if rc.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one DIR argument is required")
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	watcher, err := ingestion.NewWatcher(c.Args().First(), sys,
		ingestion.WithSettleDelay(c.Duration("settle-delay")),
		ingestion.WithWatcherLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

func purgeCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	for _, dir := range []string{cfg.Server.UploadDir, cfg.Normalize.DocumentsDir} {
		if err := normalize.PurgeFiles(dir); err != nil {
			return fmt.Errorf("purging %s: %w", dir, err)
		}
		slog.Info("purged files", "dir", dir)
	}
	return nil
}
