package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
)

// Completion is everything a successful pipeline run writes.
type Completion struct {
	DocumentID    uuid.UUID
	ExtractedData json.RawMessage
	ProcessedAt   time.Time
	Relationships []*entity.EmploymentRelationship
	Dedup         constants.DedupPolicy
}

// Store performs the multi-table writes that must succeed or fail together.
type Store struct {
	db  *DB
	log *slog.Logger
}

func NewStore(db *DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}
}

// CompleteDocument marks the document processed with its extracted data and inserts the employment
// relationships in one transaction. With DedupReplace, rows previously derived from the same
// document are deleted first. It returns the number of relationships inserted.
func (s *Store) CompleteDocument(ctx context.Context, c Completion) (created int, err error) {
	tx, err := s.db.drv.Tx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error("rollback failed", "document_id", c.DocumentID, "err", rbErr)
			}
		}
	}()

	q, args := s.db.builder().Update(documentsTable).
		Set("extracted_data", string(c.ExtractedData)).
		Set("is_processed", true).
		Set("processed_at", formatTime(c.ProcessedAt)).
		Where(entsql.EQ("id", c.DocumentID.String())).
		Query()
	var res sql.Result
	if err = tx.Exec(ctx, q, args, &res); err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("document %s: %w", c.DocumentID, common.ErrNotFound)
		return 0, err
	}

	if c.Dedup == constants.DedupReplace {
		q, args = s.db.builder().Delete(employmentTable).
			Where(entsql.EQ("source_document_id", c.DocumentID.String())).
			Query()
		var del sql.Result
		if err = tx.Exec(ctx, q, args, &del); err != nil {
			return 0, fmt.Errorf("delete previous relationships: %w", err)
		}
		if removed, _ := del.RowsAffected(); removed > 0 {
			s.log.Info("replaced previous employment relationships", "document_id", c.DocumentID, "removed", removed)
		}
	}

	if err = insertEmployment(ctx, s.db, tx, c.Relationships); err != nil {
		return 0, fmt.Errorf("insert relationships: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(c.Relationships), nil
}
