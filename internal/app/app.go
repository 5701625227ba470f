// Package app wires configuration, storage and the extraction pipeline for the commands.
package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/export"
	"github.com/joseph-ayodele/cnis-extractor/internal/external"
	"github.com/joseph-ayodele/cnis-extractor/internal/ingest"
	"github.com/joseph-ayodele/cnis-extractor/internal/pipeline"
	"github.com/joseph-ayodele/cnis-extractor/internal/repository"
	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
	"github.com/joseph-ayodele/cnis-extractor/internal/textextract"
)

// App holds every long-lived component a command needs.
type App struct {
	Config *common.Config
	Logger *slog.Logger
	DB     *repository.DB

	Documents  repository.DocumentRepository
	Employment repository.EmploymentRepository
	Runs       repository.ExtractionRunRepository

	Runner    runner.Runner
	Text      *textextract.Extractor
	External  external.StructuredExtractor
	Processor *pipeline.Processor
	Registrar *ingest.Registrar
	Exporter  *export.Service
}

// New opens the database, applies the schema when configured to and builds the pipeline. r may be
// nil to use the real process runner.
func New(ctx context.Context, cfg *common.Config, r runner.Runner, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	if r == nil {
		r = runner.NewExecRunner(logger)
	}
	text := textextract.NewExtractor(textextract.Config{Pdftotext: cfg.Extraction.Pdftotext}, r, logger)
	ext := external.New(external.Config{
		Executable:   cfg.Extraction.ExternalExecutable,
		Script:       cfg.Extraction.ExternalScript,
		Timeout:      cfg.Extraction.ExternalTimeout,
		Capabilities: cfg.Extraction.Capabilities,
	}, r, logger)

	dedup, _ := constants.ParseDedupPolicy(cfg.Pipeline.DedupPolicy)
	docs := repository.NewDocumentRepository(db, logger)
	employment := repository.NewEmploymentRepository(db, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Documents:  docs,
		Employment: employment,
		Runs:       repository.NewExtractionRunRepository(db, logger),
		Runner:     r,
		Text:       text,
		External:   ext,
		Processor:  pipeline.NewProcessor(pipeline.Config{Dedup: dedup}, db, text, ext, logger),
		Registrar:  ingest.NewRegistrar(docs, logger),
		Exporter:   export.NewService(employment, logger),
	}, nil
}

func (a *App) Close() {
	a.DB.Close()
}
