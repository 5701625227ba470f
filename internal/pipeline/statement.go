package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/classify"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
	"github.com/joseph-ayodele/cnis-extractor/internal/external"
	"github.com/joseph-ayodele/cnis-extractor/internal/fallback"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
)

// extractStatement tries the structured extractor first and fills whatever it left empty from the
// heuristic parser.
func (p *Processor) extractStatement(ctx context.Context, log *slog.Logger, path, text string, now time.Time, res *Result) (*cnis.StatementData, error) {
	data := cnis.NewStatementData()
	data.TextLength = len(text)

	res.Stage = StageExternal
	var toolProcessedAt string
	out, err := p.external.Process(ctx, path)
	switch {
	case err == nil:
		data.ClientName = out.ClientName
		data.ClientCPF = out.ClientCPF
		data.PersonalData = out.PersonalData
		data.Employment = cnis.FilterValid(out.Employment)
		data.Benefits = out.Benefits
		data.Observations = out.Observations
		if out.TextLength > 0 {
			data.TextLength = out.TextLength
		}
		toolProcessedAt = out.ProcessedAt
		log.Info("external extractor succeeded", "records", len(data.Employment))
	case errors.Is(err, external.ErrUnavailable):
		log.Debug("external extractor unavailable, using heuristic parser")
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("external extractor: %w", ctxErr)
		}
		var te *external.ToolError
		if errors.As(err, &te) {
			log.Warn("external extractor failed", "exit_code", te.ExitCode, "output", runner.Truncate(te.Output, 512))
		} else {
			log.Warn("external extractor failed", "err", err)
		}
	}
	fromTool := err == nil

	res.Stage = StageFallback
	usedFallback := false
	if len(data.Employment) == 0 {
		data.Employment = fallback.ParseEmployment(text)
		usedFallback = usedFallback || len(data.Employment) > 0
	}
	if data.PersonalData.IsEmpty() {
		data.PersonalData = fallback.ParsePersonalData(text)
		usedFallback = usedFallback || !data.PersonalData.IsEmpty()
	}
	if len(data.Benefits) == 0 {
		data.Benefits = fallback.ParseBenefits(text)
		usedFallback = usedFallback || len(data.Benefits) > 0
	}
	res.Source = sourceOf(fromTool, usedFallback)
	data.Source = string(res.Source)

	res.Stage = StageNormalized
	normalizeStatement(data, toolProcessedAt, now)

	res.Stage = StageClassified
	data.SuggestedBenefit = classify.Suggest(data.Employment, now)
	log.Debug("statement classified",
		"records", len(data.Employment),
		"suggested_benefit", data.SuggestedBenefit,
		"source", res.Source,
	)
	return data, nil
}

func sourceOf(tool, heuristic bool) constants.Source {
	switch {
	case tool && heuristic:
		return constants.SourceMixed
	case tool:
		return constants.SourceExternal
	case heuristic:
		return constants.SourceFallback
	}
	return constants.SourceNone
}

func normalizeStatement(data *cnis.StatementData, toolProcessedAt string, now time.Time) {
	data.EnsureLists()
	records := cnis.FilterValid(data.Employment)
	for i := range records {
		r := &records[i]
		r.Employer = strings.Join(strings.Fields(r.Employer), " ")
		r.TaxID = strings.TrimSpace(r.TaxID)
		r.StartDate = normalize.CoerceDate(r.StartDate)
		r.EndDate = normalize.CoerceDate(r.EndDate)
		r.RelationshipType = constants.CanonicalRelationship(r.RelationshipType)
	}
	data.Employment = records

	pd := &data.PersonalData
	pd.BirthDate = normalize.CoerceDate(pd.BirthDate)
	if data.ClientName == "" {
		data.ClientName = pd.Name
	}
	if data.ClientCPF == "" {
		data.ClientCPF = pd.CPF
	}
	data.ProcessedAt = normalize.FormatTimestamp(toolProcessedAt, fixed(now))
}

// relationships maps records onto case-owned rows; fields without a column go into Notes.
func relationships(doc *entity.Document, records []cnis.EmploymentRecord, now time.Time) ([]*entity.EmploymentRelationship, error) {
	out := make([]*entity.EmploymentRelationship, 0, len(records))
	for _, r := range records {
		notes, err := json.Marshal(entity.EmploymentNotes{
			TaxID:            r.TaxID,
			RelationshipType: r.RelationshipType,
			LastRemuneration: r.LastRemuneration,
			SourceDocument:   doc.ID.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("encode notes: %w", err)
		}
		out = append(out, &entity.EmploymentRelationship{
			ID:               uuid.New(),
			CaseID:           *doc.CaseID,
			SourceDocumentID: doc.ID,
			EmployerName:     r.Employer,
			EmployerTaxID:    r.TaxID,
			StartDate:        optionalDate(r.StartDate),
			EndDate:          optionalDate(r.EndDate),
			Salary:           r.LastRemuneration,
			Position:         r.RelationshipType,
			Notes:            string(notes),
			CreatedAt:        now,
		})
	}
	return out, nil
}

func optionalDate(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
