package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/repository"
)

func newRegistrar(t *testing.T) (*Registrar, repository.DocumentRepository) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	docs := repository.NewDocumentRepository(db, nil)
	return NewRegistrar(docs, nil), docs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRegisterFile(t *testing.T) {
	ctx := context.Background()
	reg, docs := newRegistrar(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "CNIS.PDF")
	writeFile(t, path, "%PDF-1.4")
	caseID := uuid.New()

	doc, err := reg.RegisterFile(ctx, &caseID, path, constants.StatementOfContributions)
	require.NoError(t, err)
	assert.Equal(t, constants.MediaPDF, doc.MediaType)
	assert.True(t, filepath.IsAbs(doc.FilePath))

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatementOfContributions, got.Type)
	assert.False(t, got.IsProcessed)
	require.NotNil(t, got.CaseID)
	assert.Equal(t, caseID, *got.CaseID)
}

func TestRegisterFileRejects(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistrar(t)
	dir := t.TempDir()

	png := filepath.Join(dir, "scan.png")
	writeFile(t, png, "x")
	_, err := reg.RegisterFile(ctx, nil, png, constants.Generic)
	assert.Error(t, err)

	_, err = reg.RegisterFile(ctx, nil, filepath.Join(dir, "missing.pdf"), constants.Generic)
	assert.Error(t, err)

	_, err = reg.RegisterFile(ctx, nil, filepath.Join(dir, "noext"), constants.Generic)
	assert.Error(t, err)
}

func TestRegisterDirectory(t *testing.T) {
	ctx := context.Background()
	reg, docs := newRegistrar(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF")
	writeFile(t, filepath.Join(root, "nested", "b.txt"), "texto")
	writeFile(t, filepath.Join(root, "ignored.docx"), "x")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "%PDF")

	results, stats, err := reg.RegisterDirectory(ctx, nil, root, constants.Generic, true)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Zero(t, stats.Failed)

	pending, err := docs.ListUnprocessed(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, _, err = reg.RegisterDirectory(ctx, nil, " ", constants.Generic, true)
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/tmp/.git"))
	assert.False(t, IsHidden("/tmp/docs/a.pdf"))
}
