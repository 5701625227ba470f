package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/app"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "register every pdf/txt under this directory before processing")
		docType = flag.String("type", string(constants.StatementOfContributions), "document type for files registered from -dir")
		caseStr = flag.String("case", "", "case id (UUID) for files registered from -dir")
		limit   = flag.Int("limit", 0, "process at most this many pending documents (0 = all)")
		jobs    = flag.Int("j", 0, "concurrent documents (default BATCH_CONCURRENCY)")
		out     = flag.String("out", "", "output XLSX path for the case export (requires -case)")
		inmem   = flag.Bool("inmem", false, "use an in-memory SQLite database")
	)
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if *inmem {
		cfg.Database.DSN = ":memory:"
		cfg.Database.AutoMigrate = true
	}
	if *jobs <= 0 {
		*jobs = cfg.Pipeline.BatchConcurrency
	}
	if *jobs <= 0 {
		*jobs = 1
	}

	var caseID *uuid.UUID
	if *caseStr != "" {
		id, err := uuid.Parse(*caseStr)
		if err != nil {
			printError("Error: -case must be a UUID: %v\n", err)
			os.Exit(1)
		}
		caseID = &id
	}
	if *out != "" && caseID == nil {
		printError("Error: -out requires -case\n")
		os.Exit(1)
	}

	logger, closer := common.NewLogger(cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if *dir != "" {
		dt, ok := constants.ParseDocumentType(*docType)
		if !ok {
			printError("Error: unknown -type %q\n", *docType)
			os.Exit(1)
		}
		_, stats, err := a.Registrar.RegisterDirectory(ctx, caseID, *dir, dt, true)
		if err != nil {
			logger.Error("failed to register directory", "dir", *dir, "error", err)
			os.Exit(1)
		}
		logger.Info("files registered", "matched", stats.Matched, "succeeded", stats.Succeeded, "failed", stats.Failed)
	}

	pending, err := a.Documents.ListUnprocessed(ctx, *limit)
	if err != nil {
		logger.Error("failed to list pending documents", "error", err)
		os.Exit(1)
	}
	logger.Info("processing pending documents", "count", len(pending), "concurrency", *jobs)

	start := time.Now()
	var succeeded, failed, created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)
	for _, doc := range pending {
		doc := doc
		g.Go(func() error {
			docCtx, cancel := common.WithTimeout(gctx, cfg.Pipeline.ProcessTimeout)
			defer cancel()
			res := a.Processor.ProcessDocument(docCtx, doc.ID)
			if res.Success {
				succeeded.Add(1)
				created.Add(int64(res.EmploymentCreated))
			} else {
				failed.Add(1)
				logger.Warn("document failed", "document_id", doc.ID, "path", filepath.Base(doc.FilePath), "stage", res.Stage, "error", res.Error)
			}
			// one document's failure never stops the others
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("batch complete",
		"succeeded", succeeded.Load(),
		"failed", failed.Load(),
		"employment_created", created.Load(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if *out != "" {
		b, err := a.Exporter.ExportCaseXLSX(ctx, *caseID)
		if err != nil {
			logger.Error("failed to export case", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, b, 0o644); err != nil {
			logger.Error("failed to write export", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("case export written", "path", *out)
	}
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
