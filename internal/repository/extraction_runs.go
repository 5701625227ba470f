package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
)

const runsTable = "extraction_runs"

var runColumns = []string{
	"id", "document_id", "document_type", "status", "stage", "source",
	"error", "started_at", "finished_at", "duration_ms",
}

// RunOutcome is what Finish records about a completed attempt.
type RunOutcome struct {
	Status constants.RunStatus
	Stage  string
	Source constants.Source
	Error  string
}

type ExtractionRunRepository interface {
	Start(ctx context.Context, documentID uuid.UUID, docType constants.DocumentType) (*entity.ExtractionRun, error)
	Finish(ctx context.Context, run *entity.ExtractionRun, outcome RunOutcome) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.ExtractionRun, error)
}

type extractionRunRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractionRunRepository(db *DB, log *slog.Logger) ExtractionRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionRunRepo{db: db, log: log, now: time.Now}
}

func (r *extractionRunRepo) Start(ctx context.Context, documentID uuid.UUID, docType constants.DocumentType) (*entity.ExtractionRun, error) {
	run := &entity.ExtractionRun{
		ID:           uuid.New(),
		DocumentID:   documentID,
		DocumentType: docType,
		Status:       constants.RunStatusRunning,
		StartedAt:    r.now(),
	}
	q, args := r.db.builder().Insert(runsTable).
		Columns("id", "document_id", "document_type", "status", "started_at").
		Values(run.ID.String(), documentID.String(), string(docType), string(run.Status), formatTime(run.StartedAt)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extraction_run start failed", "document_id", documentID, "err", err)
		return nil, err
	}
	r.log.Debug("extraction_run started", "run_id", run.ID, "document_id", documentID)
	return run, nil
}

func (r *extractionRunRepo) Finish(ctx context.Context, run *entity.ExtractionRun, outcome RunOutcome) error {
	finished := r.now()
	dur := finished.Sub(run.StartedAt).Milliseconds()

	upd := r.db.builder().Update(runsTable).
		Set("status", string(outcome.Status)).
		Set("stage", outcome.Stage).
		Set("source", string(outcome.Source)).
		Set("finished_at", formatTime(finished)).
		Set("duration_ms", dur)
	if outcome.Error != "" {
		upd = upd.Set("error", outcome.Error)
	}
	q, args := upd.Where(entsql.EQ("id", run.ID.String())).Query()

	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.log.Error("extraction_run finish failed", "run_id", run.ID, "err", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("extraction run %s: %w", run.ID, common.ErrNotFound)
	}

	run.Status, run.Stage, run.Source = outcome.Status, outcome.Stage, outcome.Source
	run.FinishedAt, run.DurationMS = &finished, &dur
	if outcome.Error != "" {
		msg := outcome.Error
		run.Error = &msg
	}
	r.log.Debug("extraction_run finished", "run_id", run.ID, "status", outcome.Status, "duration_ms", dur)
	return nil
}

func (r *extractionRunRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.ExtractionRun, error) {
	q, args := r.db.builder().Select(runColumns...).
		From(entsql.Table(runsTable)).
		Where(entsql.EQ("document_id", documentID.String())).
		OrderBy("started_at", "id").
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query extraction runs: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExtractionRun
	for rows.Next() {
		var (
			run                               entity.ExtractionRun
			id, docID, docType, status, start string
			stage, source                     string
			errMsg, finished                  sql.NullString
			dur                               sql.NullInt64
		)
		if err := rows.Scan(&id, &docID, &docType, &status, &stage, &source,
			&errMsg, &start, &finished, &dur); err != nil {
			return nil, fmt.Errorf("scan extraction run: %w", err)
		}
		run.ID, _ = uuid.Parse(id)
		run.DocumentID, _ = uuid.Parse(docID)
		run.DocumentType = constants.DocumentType(docType)
		run.Status = constants.RunStatus(status)
		run.Stage = stage
		run.Source = constants.Source(source)
		run.Error = nullString(errMsg)
		run.StartedAt = parseTime(start)
		run.FinishedAt = parseNullTime(finished)
		if dur.Valid {
			d := dur.Int64
			run.DurationMS = &d
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
