package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
)

// ExtractionRun is the audit record of one pipeline attempt on a document.
type ExtractionRun struct {
	ID           uuid.UUID              `json:"id"`
	DocumentID   uuid.UUID              `json:"document_id"`
	DocumentType constants.DocumentType `json:"document_type"`
	Status       constants.RunStatus    `json:"status"`
	Stage        string                 `json:"stage,omitempty"`
	Source       constants.Source       `json:"source,omitempty"`
	Error        *string                `json:"error,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
	DurationMS   *int64                 `json:"duration_ms,omitempty"`
}
