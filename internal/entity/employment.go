package entity

import (
	"time"

	"github.com/google/uuid"
)

// EmploymentRelationship is a case-owned employment period created from an extracted document.
type EmploymentRelationship struct {
	ID               uuid.UUID `json:"id"`
	CaseID           uuid.UUID `json:"case_id"`
	SourceDocumentID uuid.UUID `json:"source_document_id"`
	EmployerName     string    `json:"employer_name"`
	EmployerTaxID    string    `json:"employer_tax_id"`
	StartDate        *string   `json:"start_date,omitempty"`
	EndDate          *string   `json:"end_date,omitempty"`
	Salary           float64   `json:"salary"`
	Position         string    `json:"position"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
}

// EmploymentNotes is the side channel serialized into EmploymentRelationship.Notes.
type EmploymentNotes struct {
	TaxID            string  `json:"cnpj"`
	RelationshipType string  `json:"tipo_vinculo"`
	LastRemuneration float64 `json:"ultima_remuneracao"`
	SourceDocument   string  `json:"documento_origem"`
}
