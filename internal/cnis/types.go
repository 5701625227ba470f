// Package cnis holds the value types shared by the statement-of-contributions extractors and the
// persisted extraction payload.
package cnis

import (
	"strings"

	"github.com/joseph-ayodele/cnis-extractor/constants"
)

// EmploymentRecord is one employment relationship read from a statement. Dates are canonical
// YYYY-MM-DD or empty when absent.
type EmploymentRecord struct {
	Employer         string  `json:"empregador"`
	TaxID            string  `json:"cnpj"`
	StartDate        string  `json:"data_inicio,omitempty"`
	EndDate          string  `json:"data_fim,omitempty"`
	RelationshipType string  `json:"tipo_vinculo,omitempty"`
	LastRemuneration float64 `json:"ultima_remuneracao"`
}

// Valid reports whether the record identifies an employer at all.
func (r EmploymentRecord) Valid() bool {
	return strings.TrimSpace(r.Employer) != "" || strings.TrimSpace(r.TaxID) != ""
}

// PersonalData is the insured person's identification block.
type PersonalData struct {
	Name       string `json:"nome,omitempty"`
	CPF        string `json:"cpf,omitempty"`
	BirthDate  string `json:"data_nascimento,omitempty"`
	MotherName string `json:"nome_mae,omitempty"`
	NIT        string `json:"nit,omitempty"`
}

func (p PersonalData) IsEmpty() bool {
	return p == PersonalData{}
}

// Merge fills the empty fields of p from other.
func (p PersonalData) Merge(other PersonalData) PersonalData {
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.CPF == "" {
		p.CPF = other.CPF
	}
	if p.BirthDate == "" {
		p.BirthDate = other.BirthDate
	}
	if p.MotherName == "" {
		p.MotherName = other.MotherName
	}
	if p.NIT == "" {
		p.NIT = other.NIT
	}
	return p
}

// Benefit is a previously granted benefit listed on the statement.
type Benefit struct {
	Code        string                    `json:"codigo"`
	Description string                    `json:"descricao"`
	Status      string                    `json:"situacao,omitempty"`
	Category    constants.BenefitCategory `json:"categoria,omitempty"`
}

// BenefitStatusActive marks benefits read by the heuristic parser.
const BenefitStatusActive = "ativo"

// StatementData is the normalized payload stored in documents.extracted_data for a statement.
type StatementData struct {
	ClientName       string                    `json:"client_name,omitempty"`
	ClientCPF        string                    `json:"client_cpf,omitempty"`
	PersonalData     PersonalData              `json:"dados_pessoais"`
	Employment       []EmploymentRecord        `json:"vinculos_empregaticios"`
	Benefits         []Benefit                 `json:"beneficios"`
	Observations     []string                  `json:"observacoes,omitempty"`
	SuggestedBenefit constants.BenefitCategory `json:"tipo_beneficio_sugerido"`
	Source           string                    `json:"fonte"`
	TextLength       int                       `json:"text_length"`
	ProcessedAt      string                    `json:"processado_em"`
}

// NewStatementData returns a payload whose list fields encode as [] rather than null.
func NewStatementData() *StatementData {
	return &StatementData{
		Employment: []EmploymentRecord{},
		Benefits:   []Benefit{},
	}
}

// EnsureLists replaces nil lists so the payload always encodes them as arrays.
func (s *StatementData) EnsureLists() {
	if s.Employment == nil {
		s.Employment = []EmploymentRecord{}
	}
	if s.Benefits == nil {
		s.Benefits = []Benefit{}
	}
}

// FilterValid drops records with neither employer nor tax id, preserving order.
func FilterValid(records []EmploymentRecord) []EmploymentRecord {
	out := make([]EmploymentRecord, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}
