// Package fallback reconstructs employment history, personal data and benefits from the plain text
// of a statement when the external extractor is missing or comes back empty.
package fallback

import (
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
)

// Strategy is one way of reading employment records out of statement text.
type Strategy func(text string) []cnis.EmploymentRecord

// EmploymentStrategies are tried in order; the first non-empty result wins.
var EmploymentStrategies = []Strategy{
	segmentByMarker,
	segmentByTaxID,
	scanLines,
}

// ParseEmployment never fails. Text without any recognizable employer yields an empty, non-nil list.
func ParseEmployment(text string) []cnis.EmploymentRecord {
	return parseWith(EmploymentStrategies, text)
}

func parseWith(strategies []Strategy, text string) []cnis.EmploymentRecord {
	for _, s := range strategies {
		if recs := s(text); len(recs) > 0 {
			return recs
		}
	}
	return []cnis.EmploymentRecord{}
}

// segmentByMarker splits on record headers ("Seq. 3", or a row starting with sequence + NIT).
// Each section runs to the next header, a terminal block or the end of the text.
func segmentByMarker(text string) []cnis.EmploymentRecord {
	locs := reRecordMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	return parseSections(text, locs)
}

// segmentByTaxID pairs each CNPJ with the text that follows it up to the next CNPJ.
func segmentByTaxID(text string) []cnis.EmploymentRecord {
	locs := reTaxID.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	return parseSections(text, locs)
}

func parseSections(text string, locs [][]int) []cnis.EmploymentRecord {
	out := make([]cnis.EmploymentRecord, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		section := cutAtTerminal(text[loc[0]:end])
		if rec := parseSection(section); rec.Valid() {
			out = append(out, rec)
		}
	}
	return out
}

func cutAtTerminal(section string) string {
	if loc := reTerminal.FindStringIndex(section); loc != nil && loc[0] > 0 {
		return section[:loc[0]]
	}
	return section
}
