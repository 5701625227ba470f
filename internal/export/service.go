// Package export renders a case's employment history as a spreadsheet.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cnis-extractor/internal/classify"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
	"github.com/joseph-ayodele/cnis-extractor/internal/repository"
)

const (
	employmentSheet = "Vinculos"
	summarySheet    = "Resumo"
)

// Service produces XLSX bytes from the employment relationships stored for a case.
type Service struct {
	employment repository.EmploymentRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo repository.EmploymentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{employment: repo, logger: logger, now: time.Now}
}

// ExportCaseXLSX returns a workbook with one row per employment relationship and a summary sheet with
// the approximate contribution years and the suggested benefit.
func (s *Service) ExportCaseXLSX(ctx context.Context, caseID uuid.UUID) ([]byte, error) {
	start := time.Now()

	rels, err := s.employment.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("query employment: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close failed", "err", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", employmentSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Empregador",
		"CNPJ",
		"Data Início",
		"Data Fim",
		"Tipo de Vínculo",
		"Última Remuneração",
		"Documento de Origem",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(employmentSheet, cell, h)
	}

	records := make([]cnis.EmploymentRecord, 0, len(rels))
	for i, r := range rels {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(employmentSheet, cell, v)
		}
		write(1, r.EmployerName)
		write(2, r.EmployerTaxID)
		write(3, deref(r.StartDate))
		write(4, deref(r.EndDate))
		write(5, r.Position)
		write(6, r.Salary)
		write(7, r.SourceDocumentID.String())

		records = append(records, toRecord(r))
	}

	_ = f.SetColWidth(employmentSheet, "A", "A", 40) // employer
	_ = f.SetColWidth(employmentSheet, "B", "B", 22) // cnpj
	_ = f.SetColWidth(employmentSheet, "C", "D", 14) // dates
	_ = f.SetColWidth(employmentSheet, "E", "E", 26) // relationship
	_ = f.SetColWidth(employmentSheet, "F", "F", 18) // remuneration
	_ = f.SetColWidth(employmentSheet, "G", "G", 38) // document
	if len(rels) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err == nil {
			last, _ := excelize.CoordinatesToCellName(6, len(rels)+1)
			_ = f.SetCellStyle(employmentSheet, "F2", last, style)
		}
	}

	now := s.now()
	summary := [][2]any{
		{"Caso", caseID.String()},
		{"Vínculos", len(rels)},
		{"Anos de contribuição (aprox.)", fmt.Sprintf("%.1f", classify.ContributionYears(records, now))},
		{"Benefício sugerido", string(classify.Suggest(records, now))},
		{"Gerado em", now.UTC().Format("2006-01-02 15:04:05")},
	}
	for i, kv := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 30)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("case export written",
		"case_id", caseID,
		"rows", len(rels),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// toRecord rebuilds the classifier input; the relationship type lives in Position and, for older
// rows, in the notes.
func toRecord(r *entity.EmploymentRelationship) cnis.EmploymentRecord {
	rec := cnis.EmploymentRecord{
		Employer:         r.EmployerName,
		TaxID:            r.EmployerTaxID,
		StartDate:        deref(r.StartDate),
		EndDate:          deref(r.EndDate),
		RelationshipType: r.Position,
		LastRemuneration: r.Salary,
	}
	if rec.RelationshipType == "" && r.Notes != "" {
		var notes entity.EmploymentNotes
		if json.Unmarshal([]byte(r.Notes), &notes) == nil {
			rec.RelationshipType = notes.RelationshipType
		}
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
