package fallback

import (
	"strings"

	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

// scanLines is the last resort for text whose tax ids lost their punctuation. A line holding a tax id
// starts a new record; the following lines fill in relationship type and dates until the next one.
// Records are kept only when an employer name was found.
func scanLines(text string) []cnis.EmploymentRecord {
	out := []cnis.EmploymentRecord{}
	var cur *cnis.EmploymentRecord
	flush := func() {
		if cur != nil && cur.Employer != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if loc := reLooseTaxID.FindStringIndex(line); loc != nil {
			flush()
			cur = &cnis.EmploymentRecord{
				TaxID:    formatTaxID(line[loc[0]:loc[1]]),
				Employer: cleanEmployer(line[loc[1]:]),
			}
			if cur.Employer == "" {
				cur.Employer = cleanEmployer(line[:loc[0]])
			}
		}
		if cur == nil {
			continue
		}
		if cur.RelationshipType == "" {
			cur.RelationshipType = relationshipType(line)
		}
		for _, d := range validDates(line) {
			switch {
			case cur.StartDate == "":
				cur.StartDate = d
			case d != cur.StartDate:
				cur.EndDate = d
			}
		}
		if cur.LastRemuneration == 0 {
			if m := reMoney.FindStringSubmatch(line); m != nil {
				cur.LastRemuneration = normalize.Money(m[1])
			}
		}
	}
	flush()
	return out
}

// formatTaxID rewrites a 14 digit CNPJ into its punctuated form; anything else is returned trimmed.
func formatTaxID(s string) string {
	digits := make([]byte, 0, 14)
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) != 14 {
		return strings.TrimSpace(s)
	}
	d := string(digits)
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}
