// Package ingest registers files that are already on local disk as documents awaiting extraction.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
	"github.com/joseph-ayodele/cnis-extractor/internal/repository"
)

// Registrar creates Document rows for local files.
type Registrar struct {
	Docs   repository.DocumentRepository
	Logger *slog.Logger
	// AllowedExts is lowercased without '.'; nil means pdf and txt.
	AllowedExts map[string]struct{}
}

func NewRegistrar(docs repository.DocumentRepository, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{Docs: docs, Logger: logger}
}

// Registration is the per-file outcome.
type Registration struct {
	SourcePath string
	DocumentID uuid.UUID
	MediaType  string
	Err        string
}

func (r *Registrar) allowed(ext string) bool {
	allow := r.AllowedExts
	if allow == nil {
		allow = map[string]struct{}{"pdf": {}, "txt": {}}
	}
	_, ok := allow[constants.NormalizeExt(ext)]
	return ok
}

// RegisterFile resolves path, guesses the media type from its extension and stores an unprocessed
// document. caseID may be nil for documents not attached to a case.
func (r *Registrar) RegisterFile(ctx context.Context, caseID *uuid.UUID, path string, docType constants.DocumentType) (*entity.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !r.allowed(ext) {
		r.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return nil, fmt.Errorf("unsupported or missing extension: %q", ext)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	doc, err := r.Docs.Create(ctx, &entity.Document{
		CaseID:    caseID,
		Type:      docType,
		FilePath:  abs,
		MediaType: constants.MediaTypeForPath(abs),
	})
	if err != nil {
		return nil, err
	}
	r.Logger.Info("document registered", "document_id", doc.ID, "path", abs, "document_type", doc.Type)
	return doc, nil
}
