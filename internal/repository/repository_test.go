package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func strPtr(s string) *string { return &s }

func newRelationship(caseID, docID uuid.UUID, employer string) *entity.EmploymentRelationship {
	return &entity.EmploymentRelationship{
		ID:               uuid.New(),
		CaseID:           caseID,
		SourceDocumentID: docID,
		EmployerName:     employer,
		EmployerTaxID:    "12.345.678/0001-90",
		StartDate:        strPtr("1990-02-01"),
		Salary:           1234.56,
		Position:         constants.RelEmployee,
		Notes:            `{"cnpj":"12.345.678/0001-90"}`,
		CreatedAt:        time.Now(),
	}
}

func TestOpenRejectsUnknownDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "mysql://root@localhost/db"}, nil)
	require.Error(t, err)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://app:***@db:5432/cnis", redact("postgres://app:secret@db:5432/cnis"))
	assert.Equal(t, ":memory:", redact(":memory:"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestSchemaStatementsPerDialect(t *testing.T) {
	pg, err := schemaStatements("postgres")
	require.NoError(t, err)
	assert.Contains(t, pg[0], "JSONB")
	assert.Contains(t, pg[0], "BOOLEAN NOT NULL DEFAULT FALSE")

	_, err = schemaStatements("oracle")
	assert.Error(t, err)
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db, nil)

	caseID := uuid.New()
	created, err := docs.Create(ctx, &entity.Document{
		CaseID:    &caseID,
		Type:      constants.StatementOfContributions,
		FilePath:  "/data/cnis.pdf",
		MediaType: constants.MediaPDF,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	other, err := docs.Create(ctx, &entity.Document{FilePath: "/data/note.txt", MediaType: constants.MediaText})
	require.NoError(t, err)
	assert.Equal(t, constants.Generic, other.Type)

	got, err := docs.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.CaseID)
	assert.Equal(t, caseID, *got.CaseID)
	assert.Equal(t, constants.StatementOfContributions, got.Type)
	assert.False(t, got.IsProcessed)
	assert.Nil(t, got.ProcessedAt)
	assert.Empty(t, got.ExtractedData)

	_, err = docs.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	pending, err := docs.ListUnprocessed(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := docs.ListUnprocessed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCompleteDocument(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db, nil)
	employment := NewEmploymentRepository(db, nil)
	store := NewStore(db, nil)

	caseID := uuid.New()
	doc, err := docs.Create(ctx, &entity.Document{CaseID: &caseID, Type: constants.StatementOfContributions, FilePath: "/x.pdf"})
	require.NoError(t, err)

	rel := newRelationship(caseID, doc.ID, "ACME LTDA")
	rel.EndDate = nil
	processedAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	n, err := store.CompleteDocument(ctx, Completion{
		DocumentID:    doc.ID,
		ExtractedData: json.RawMessage(`{"vinculos_empregaticios":[{"empregador":"ACME LTDA"}]}`),
		ProcessedAt:   processedAt,
		Relationships: []*entity.EmploymentRelationship{rel},
		Dedup:         constants.DedupReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, processedAt, *got.ProcessedAt)
	assert.JSONEq(t, `{"vinculos_empregaticios":[{"empregador":"ACME LTDA"}]}`, string(got.ExtractedData))

	rels, err := employment.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "ACME LTDA", rels[0].EmployerName)
	assert.Equal(t, doc.ID, rels[0].SourceDocumentID)
	require.NotNil(t, rels[0].StartDate)
	assert.Equal(t, "1990-02-01", *rels[0].StartDate)
	assert.Nil(t, rels[0].EndDate)
	assert.InDelta(t, 1234.56, rels[0].Salary, 1e-9)

	pending, err := docs.ListUnprocessed(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEmploymentListRejectsCorruptIDs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db, nil)
	employment := NewEmploymentRepository(db, nil)

	caseID := uuid.New()
	doc, err := docs.Create(ctx, &entity.Document{CaseID: &caseID, Type: constants.StatementOfContributions, FilePath: "/x.pdf"})
	require.NoError(t, err)
	_, err = NewStore(db, nil).CompleteDocument(ctx, Completion{
		DocumentID:    doc.ID,
		ExtractedData: json.RawMessage(`{}`),
		ProcessedAt:   time.Now(),
		Relationships: []*entity.EmploymentRelationship{newRelationship(caseID, doc.ID, "ACME LTDA")},
		Dedup:         constants.DedupAppend,
	})
	require.NoError(t, err)

	require.NoError(t, db.drv.Exec(ctx, "UPDATE employment_relationships SET source_document_id = 'not-a-uuid'", []any{}, nil))

	_, err = employment.ListByCase(ctx, caseID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-uuid")
}

func TestCompleteDocumentDedupPolicies(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db, nil)
	employment := NewEmploymentRepository(db, nil)
	store := NewStore(db, nil)

	caseID := uuid.New()
	doc, err := docs.Create(ctx, &entity.Document{CaseID: &caseID, Type: constants.StatementOfContributions, FilePath: "/x.pdf"})
	require.NoError(t, err)

	complete := func(policy constants.DedupPolicy) {
		_, err := store.CompleteDocument(ctx, Completion{
			DocumentID:    doc.ID,
			ExtractedData: json.RawMessage(`{}`),
			ProcessedAt:   time.Now(),
			Relationships: []*entity.EmploymentRelationship{
				newRelationship(caseID, doc.ID, "ACME LTDA"),
				newRelationship(caseID, doc.ID, "BETA SA"),
			},
			Dedup: policy,
		})
		require.NoError(t, err)
	}

	complete(constants.DedupAppend)
	complete(constants.DedupAppend)
	rels, err := employment.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, rels, 4, "append duplicates on reprocessing")

	complete(constants.DedupReplace)
	rels, err = employment.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, rels, 2, "replace keeps only the latest run")
}

func TestCompleteDocumentIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db, nil)
	employment := NewEmploymentRepository(db, nil)
	store := NewStore(db, nil)

	caseID := uuid.New()
	doc, err := docs.Create(ctx, &entity.Document{CaseID: &caseID, Type: constants.StatementOfContributions, FilePath: "/x.pdf"})
	require.NoError(t, err)

	dup := newRelationship(caseID, doc.ID, "ACME LTDA")
	again := *dup // same primary key: the insert fails
	_, err = store.CompleteDocument(ctx, Completion{
		DocumentID:    doc.ID,
		ExtractedData: json.RawMessage(`{}`),
		ProcessedAt:   time.Now(),
		Relationships: []*entity.EmploymentRelationship{dup, &again},
		Dedup:         constants.DedupReplace,
	})
	require.Error(t, err)

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsProcessed)
	assert.Empty(t, got.ExtractedData)

	rels, err := employment.ListByCase(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestCompleteDocumentUnknownDocument(t *testing.T) {
	db := newTestDB(t)
	_, err := NewStore(db, nil).CompleteDocument(context.Background(), Completion{
		DocumentID:    uuid.New(),
		ExtractedData: json.RawMessage(`{}`),
		ProcessedAt:   time.Now(),
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExtractionRunRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	runs := NewExtractionRunRepository(db, nil)

	docID := uuid.New()
	run, err := runs.Start(ctx, docID, constants.StatementOfContributions)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusRunning, run.Status)

	require.NoError(t, runs.Finish(ctx, run, RunOutcome{
		Status: constants.RunStatusFailed,
		Stage:  "text_extracted",
		Source: constants.SourceNone,
		Error:  "file not found",
	}))

	list, err := runs.ListByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, constants.RunStatusFailed, list[0].Status)
	assert.Equal(t, "text_extracted", list[0].Stage)
	require.NotNil(t, list[0].Error)
	assert.Equal(t, "file not found", *list[0].Error)
	assert.NotNil(t, list[0].FinishedAt)
	assert.NotNil(t, list[0].DurationMS)

	ghost := &entity.ExtractionRun{ID: uuid.New(), StartedAt: time.Now()}
	assert.ErrorIs(t, runs.Finish(ctx, ghost, RunOutcome{Status: constants.RunStatusProcessed}), common.ErrNotFound)
}
