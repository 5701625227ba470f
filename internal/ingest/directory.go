package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
)

// DirStats summarizes a directory registration.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// RegisterDirectory walks root and registers every file with an allowed extension. Per-file failures
// are reported in the results and do not stop the walk.
func (r *Registrar) RegisterDirectory(
	ctx context.Context,
	caseID *uuid.UUID,
	root string,
	docType constants.DocumentType,
	skipHidden bool,
) ([]Registration, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Registration
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Registration{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !r.allowed(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		doc, err := r.RegisterFile(ctx, caseID, path, docType)
		if err != nil {
			results = append(results, Registration{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, Registration{SourcePath: doc.FilePath, DocumentID: doc.ID, MediaType: doc.MediaType})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	r.Logger.Info("directory registered",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
