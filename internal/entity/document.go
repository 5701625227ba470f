package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
)

// Document represents an uploaded case document for data transfer between layers.
type Document struct {
	ID            uuid.UUID              `json:"id"`
	CaseID        *uuid.UUID             `json:"case_id,omitempty"`
	Type          constants.DocumentType `json:"document_type"`
	FilePath      string                 `json:"file_path"`
	MediaType     string                 `json:"media_type"`
	IsProcessed   bool                   `json:"is_processed"`
	ExtractedData json.RawMessage        `json:"extracted_data,omitempty"`
	ProcessedAt   *time.Time             `json:"processed_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
