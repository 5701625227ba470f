package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
)

const employmentTable = "employment_relationships"

var employmentColumns = []string{
	"id", "case_id", "source_document_id", "employer_name", "employer_tax_id",
	"start_date", "end_date", "salary", "position", "notes", "created_at",
}

type EmploymentRepository interface {
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.EmploymentRelationship, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.EmploymentRelationship, error)
}

type employmentRepo struct {
	db  *DB
	log *slog.Logger
}

func NewEmploymentRepository(db *DB, log *slog.Logger) EmploymentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &employmentRepo{db: db, log: log}
}

func (r *employmentRepo) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.EmploymentRelationship, error) {
	return r.list(ctx, entsql.EQ("case_id", caseID.String()))
}

func (r *employmentRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.EmploymentRelationship, error) {
	return r.list(ctx, entsql.EQ("source_document_id", documentID.String()))
}

// list orders by start date (NULLs sort first on SQLite and last on Postgres), then insertion time.
func (r *employmentRepo) list(ctx context.Context, where *entsql.Predicate) ([]*entity.EmploymentRelationship, error) {
	q, args := r.db.builder().Select(employmentColumns...).
		From(entsql.Table(employmentTable)).
		Where(where).
		OrderBy("start_date", "created_at", "id").
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.log.Error("employment query failed", "err", err)
		return nil, fmt.Errorf("query employment relationships: %w", err)
	}
	defer rows.Close()

	var out []*entity.EmploymentRelationship
	for rows.Next() {
		var (
			e                          entity.EmploymentRelationship
			id, caseID, docID, created string
			start, end                 sql.NullString
		)
		if err := rows.Scan(&id, &caseID, &docID, &e.EmployerName, &e.EmployerTaxID,
			&start, &end, &e.Salary, &e.Position, &e.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan employment relationship: %w", err)
		}
		var err error
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("employment id %q: %w", id, err)
		}
		if e.CaseID, err = uuid.Parse(caseID); err != nil {
			return nil, fmt.Errorf("employment %s case id %q: %w", id, caseID, err)
		}
		if e.SourceDocumentID, err = uuid.Parse(docID); err != nil {
			return nil, fmt.Errorf("employment %s document id %q: %w", id, docID, err)
		}
		e.StartDate = nullString(start)
		e.EndDate = nullString(end)
		e.CreatedAt = parseTime(created)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// insertEmployment adds all rows with a single multi-row INSERT on the given connection or tx.
func insertEmployment(ctx context.Context, db *DB, exec execer, rels []*entity.EmploymentRelationship) error {
	if len(rels) == 0 {
		return nil
	}
	ins := db.builder().Insert(employmentTable).Columns(employmentColumns...)
	for _, e := range rels {
		ins = ins.Values(e.ID.String(), e.CaseID.String(), e.SourceDocumentID.String(),
			e.EmployerName, e.EmployerTaxID, optional(e.StartDate), optional(e.EndDate),
			e.Salary, e.Position, e.Notes, formatTime(e.CreatedAt))
	}
	q, args := ins.Query()
	return exec.Exec(ctx, q, args, nil)
}

// execer is satisfied by both *entsql.Driver and dialect.Tx.
type execer interface {
	Exec(ctx context.Context, query string, args, v any) error
}
