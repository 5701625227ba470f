package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/app"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/external"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		printError("Error: encode output: %v\n", err)
	}
}

func main() {
	var (
		file    = flag.String("file", "", "local file to register and process")
		docType = flag.String("type", string(constants.StatementOfContributions), "document type: "+fmt.Sprint(constants.DocumentTypes()))
		caseStr = flag.String("case", "", "case id (UUID) that owns the document")
		idStr   = flag.String("id", "", "process an already registered document id instead of -file")
		probe   = flag.Bool("probe", false, "print the structured extractor environment and exit")
		xlsx    = flag.String("xlsx", "", "write the case employment export to this path after processing")
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
	logger, closer := common.NewLogger(cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if *probe {
		env := a.External.Probe(ctx)
		printJSON(struct {
			Available   bool                 `json:"available"`
			Environment external.Environment `json:"environment"`
		}{a.External.Available(), env})
		return
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

	var docID uuid.UUID
	switch {
	case *idStr != "":
		if docID, err = uuid.Parse(*idStr); err != nil {
			printError("Error: -id must be a UUID: %v\n", err)
			os.Exit(1)
		}
	case *file != "":
		dt, ok := constants.ParseDocumentType(*docType)
		if !ok {
			printError("Error: unknown -type %q\n", *docType)
			os.Exit(1)
		}
		doc, err := a.Registrar.RegisterFile(ctx, caseID, *file, dt)
		if err != nil {
			printError("Error: register %s: %v\n", *file, err)
			os.Exit(1)
		}
		docID = doc.ID
	default:
		printError("Error: one of -file, -id or -probe is required\n")
		flag.Usage()
		os.Exit(1)
	}

	res := a.Processor.ProcessDocument(ctx, docID)
	printJSON(res)

	if *xlsx != "" && caseID != nil {
		b, err := a.Exporter.ExportCaseXLSX(ctx, *caseID)
		if err != nil {
			printError("Error: export: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsx, b, 0o644); err != nil {
			printError("Error: write %s: %v\n", *xlsx, err)
			os.Exit(1)
		}
		logger.Info("case export written", "path", *xlsx, "bytes", len(b))
	}
	if !res.Success {
		os.Exit(1)
	}
}
