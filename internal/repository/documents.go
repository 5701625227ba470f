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

const documentsTable = "documents"

var documentColumns = []string{
	"id", "case_id", "document_type", "file_path", "media_type",
	"is_processed", "extracted_data", "processed_at", "created_at",
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*entity.Document, error)
}

type documentRepo struct {
	db  *DB
	log *slog.Logger
}

func NewDocumentRepository(db *DB, log *slog.Logger) DocumentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &documentRepo{db: db, log: log}
}

// Create inserts a new, unprocessed document. A zero ID is replaced with a fresh UUID.
func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	out := *doc
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.Type == "" {
		out.Type = constants.Generic
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	out.CreatedAt = parseTime(formatTime(out.CreatedAt))

	var caseID any
	if out.CaseID != nil {
		caseID = out.CaseID.String()
	}
	var data any
	if len(out.ExtractedData) > 0 {
		data = string(out.ExtractedData)
	}
	var processedAt any
	if out.ProcessedAt != nil {
		processedAt = formatTime(*out.ProcessedAt)
	}

	q, args := r.db.builder().Insert(documentsTable).
		Columns(documentColumns...).
		Values(out.ID.String(), caseID, string(out.Type), out.FilePath, out.MediaType,
			out.IsProcessed, data, processedAt, formatTime(out.CreatedAt)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("document create failed", "file_path", out.FilePath, "err", err)
		return nil, fmt.Errorf("create document: %w", err)
	}
	r.log.Info("document created", "document_id", out.ID, "document_type", out.Type)
	return &out, nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	q, args := r.db.builder().Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()
	docs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return docs[0], nil
}

// ListUnprocessed returns documents awaiting extraction, oldest first. limit <= 0 means no limit.
func (r *documentRepo) ListUnprocessed(ctx context.Context, limit int) ([]*entity.Document, error) {
	sel := r.db.builder().Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("is_processed", false)).
		OrderBy("created_at", "id")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()
	return r.query(ctx, q, args)
}

func (r *documentRepo) query(ctx context.Context, q string, args []any) ([]*entity.Document, error) {
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.log.Error("document query failed", "err", err)
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		var (
			d                       entity.Document
			id, docType, createdAt  string
			caseID, data, processed sql.NullString
		)
		if err := rows.Scan(&id, &caseID, &docType, &d.FilePath, &d.MediaType,
			&d.IsProcessed, &data, &processed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("document id %q: %w", id, err)
		}
		d.ID = parsed
		d.CaseID = nullUUID(caseID)
		d.Type = constants.DocumentType(docType)
		if data.Valid {
			d.ExtractedData = []byte(data.String)
		}
		d.ProcessedAt = parseNullTime(processed)
		d.CreatedAt = parseTime(createdAt)
		out = append(out, &d)
	}
	return out, rows.Err()
}
