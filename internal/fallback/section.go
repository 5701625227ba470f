package fallback

import (
	"strings"

	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

// parseSection reads one candidate employment block. The result may be invalid; callers drop it.
func parseSection(section string) cnis.EmploymentRecord {
	var rec cnis.EmploymentRecord

	if loc := reTaxID.FindStringIndex(section); loc != nil {
		rec.TaxID = section[loc[0]:loc[1]]
		rec.Employer = cleanEmployer(restOfLine(section[loc[1]:]))
	}
	if rec.Employer == "" {
		if m := reOriginLabel.FindStringSubmatch(section); m != nil {
			rec.Employer = cleanEmployer(m[1])
		}
	}
	rec.RelationshipType = relationshipType(section)
	rec.StartDate, rec.EndDate = sectionDates(section)
	if m := reMoney.FindStringSubmatch(section); m != nil {
		rec.LastRemuneration = normalize.Money(m[1])
	}
	return rec
}

func restOfLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// cleanEmployer trims a candidate name at the first column label, date or amount and collapses
// whitespace. Candidates without a single letter are rejected.
func cleanEmployer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-–:|; ")
	s = reEmployerLabel.ReplaceAllString(s, "")
	if loc := reEmployerStop.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "-–:|;, ")
	if !reHasLetter.MatchString(s) {
		return ""
	}
	return s
}

func relationshipType(section string) string {
	for _, p := range relationshipPatterns {
		if p.re.MatchString(section) {
			return p.label
		}
	}
	return ""
}

// sectionDates prefers the labeled start/end pair. Otherwise the first valid date token is the start
// and, when there is more than one, the last is the end.
func sectionDates(section string) (start, end string) {
	if m := reStartLabel.FindStringSubmatch(section); m != nil {
		start = normalize.Date(m[1])
		if e := reEndLabel.FindStringSubmatch(section); e != nil {
			end = normalize.Date(e[1])
		}
		if start != "" {
			return start, end
		}
	}
	dates := validDates(section)
	switch len(dates) {
	case 0:
		return "", ""
	case 1:
		return dates[0], ""
	default:
		return dates[0], dates[len(dates)-1]
	}
}

func validDates(s string) []string {
	tokens := reDate.FindAllString(s, -1)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if d := normalize.Date(tok); d != "" {
			out = append(out, d)
		}
	}
	return out
}
