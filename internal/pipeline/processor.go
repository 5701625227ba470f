// Package pipeline runs one document through text extraction, type routing, structured or heuristic
// extraction, normalization, classification and persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
	"github.com/joseph-ayodele/cnis-extractor/internal/external"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
	"github.com/joseph-ayodele/cnis-extractor/internal/reports"
	"github.com/joseph-ayodele/cnis-extractor/internal/repository"
	"github.com/joseph-ayodele/cnis-extractor/internal/textextract"
)

// Stages, in the order a run passes through them.
const (
	StageStart             = "start"
	StageTextExtracted     = "text_extracted"
	StageRouted            = "type_routed"
	StageExternal          = "external_attempted"
	StageFallback          = "fallback"
	StageNormalized        = "normalized"
	StageClassified        = "classified"
	StagePersisted         = "persisted"
	StageEmploymentCreated = "employment_created"
	StageDone              = "done"
)

// Config is fixed at construction; nothing is read from the environment during a run.
type Config struct {
	Dedup constants.DedupPolicy
	Now   func() time.Time
}

// TextExtractor is satisfied by *textextract.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, path, mediaType string) (textextract.Result, error)
}

// Result is the structured outcome of one run. Failures are reported here, never as a Go error.
type Result struct {
	Success           bool                   `json:"success"`
	DocumentID        uuid.UUID              `json:"document_id"`
	DocumentType      constants.DocumentType `json:"document_type,omitempty"`
	Stage             string                 `json:"stage"`
	Source            constants.Source       `json:"source,omitempty"`
	Data              json.RawMessage        `json:"data,omitempty"`
	EmploymentCreated int                    `json:"employment_created"`
	Error             string                 `json:"error,omitempty"`

	// Err is the underlying failure, kept for callers that map it to transport status codes.
	Err error `json:"-"`
}

type Processor struct {
	cfg      Config
	logger   *slog.Logger
	docs     repository.DocumentRepository
	runs     repository.ExtractionRunRepository
	store    *repository.Store
	text     TextExtractor
	external external.StructuredExtractor
}

func NewProcessor(cfg Config, db *repository.DB, text TextExtractor, ext external.StructuredExtractor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Dedup == "" {
		cfg.Dedup = constants.DedupReplace
	}
	return &Processor{
		cfg:      cfg,
		logger:   logger,
		docs:     repository.NewDocumentRepository(db, logger),
		runs:     repository.NewExtractionRunRepository(db, logger),
		store:    repository.NewStore(db, logger),
		text:     text,
		external: ext,
	}
}

// ProcessDocument runs the whole pipeline for one document. Any error or panic is converted into a
// failed Result and the document row is left as it was.
func (p *Processor) ProcessDocument(ctx context.Context, documentID uuid.UUID) (res Result) {
	res = Result{DocumentID: documentID, Stage: StageStart, Source: constants.SourceNone}
	ctx = common.WithDocumentID(ctx, documentID.String())
	log := common.LoggerFromContext(ctx, p.logger)
	started := time.Now()

	var run *entity.ExtractionRun
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", "stage", res.Stage, "panic", r, "stack", string(debug.Stack()))
			res = p.fail(log, res, fmt.Errorf("panic: %v", r))
		}
		p.finishRun(ctx, log, run, res)
	}()

	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		return p.fail(log, res, err)
	}
	res.DocumentType = doc.Type

	if run, err = p.runs.Start(ctx, doc.ID, doc.Type); err != nil {
		log.Warn("extraction run not recorded", "err", err)
	}

	if err := p.process(ctx, log, doc, &res); err != nil {
		return p.fail(log, res, err)
	}
	res.Success = true
	res.Stage = StageDone
	log.Info("document processed",
		"document_type", doc.Type,
		"source", res.Source,
		"employment_created", res.EmploymentCreated,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return res
}

func (p *Processor) process(ctx context.Context, log *slog.Logger, doc *entity.Document, res *Result) error {
	path, err := filepath.Abs(doc.FilePath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	text, err := p.text.Extract(ctx, path, doc.MediaType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	res.Stage = StageTextExtracted
	for _, w := range text.Warnings {
		log.Warn("text extraction warning", "warning", w)
	}

	res.Stage = StageRouted
	now := p.cfg.Now()
	var (
		payload any
		rels    []*entity.EmploymentRelationship
	)
	switch doc.Type {
	case constants.StatementOfContributions:
		data, err := p.extractStatement(ctx, log, path, text.Text, now, res)
		if err != nil {
			return err
		}
		if doc.CaseID != nil {
			if rels, err = relationships(doc, data.Employment, now); err != nil {
				return err
			}
		}
		payload = data
	case constants.MedicalReport:
		rep := reports.ExtractMedical(text.Text)
		rep.ProcessedAt = normalize.FormatTimestamp("", fixed(now))
		res.Stage = StageNormalized
		payload = rep
	default:
		idx := reports.HarvestGeneric(text.Text)
		idx.ProcessedAt = normalize.FormatTimestamp("", fixed(now))
		res.Stage = StageNormalized
		payload = idx
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode extracted data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	created, err := p.store.CompleteDocument(ctx, repository.Completion{
		DocumentID:    doc.ID,
		ExtractedData: data,
		ProcessedAt:   now,
		Relationships: rels,
		Dedup:         p.cfg.Dedup,
	})
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	res.Stage = StagePersisted
	if created > 0 {
		res.Stage = StageEmploymentCreated
	}
	res.Data = data
	res.EmploymentCreated = created
	return nil
}

func (p *Processor) fail(log *slog.Logger, res Result, err error) Result {
	log.Error("document processing failed", "stage", res.Stage, "err", err)
	res.Success = false
	res.Data = nil
	res.EmploymentCreated = 0
	res.Error = err.Error()
	res.Err = err
	return res
}

// finishRun records the outcome after the document transaction has ended; audit failures are logged only.
func (p *Processor) finishRun(ctx context.Context, log *slog.Logger, run *entity.ExtractionRun, res Result) {
	if run == nil {
		return
	}
	outcome := repository.RunOutcome{
		Status: constants.RunStatusProcessed,
		Stage:  res.Stage,
		Source: res.Source,
	}
	if !res.Success {
		outcome.Status = constants.RunStatusFailed
		outcome.Error = res.Error
	}
	if err := p.runs.Finish(context.WithoutCancel(ctx), run, outcome); err != nil {
		log.Warn("extraction run not finalized", "run_id", run.ID, "err", err)
	}
}

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
