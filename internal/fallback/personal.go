package fallback

import (
	"strings"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

// ParsePersonalData scans the text once per label. Missing labels leave the field empty.
func ParsePersonalData(text string) cnis.PersonalData {
	var p cnis.PersonalData
	if m := reNIT.FindStringSubmatch(text); m != nil {
		p.NIT = m[1]
	}
	if m := reName.FindStringSubmatch(text); m != nil {
		p.Name = collapse(m[1])
	}
	if m := reBirthDate.FindStringSubmatch(text); m != nil {
		p.BirthDate = normalize.Date(m[1])
	}
	if m := reMotherName.FindStringSubmatch(text); m != nil {
		p.MotherName = collapse(m[1])
	}
	if m := reCPF.FindStringSubmatch(text); m != nil {
		p.CPF = m[1]
	}
	return p
}

// ParseBenefits records every "Benefício <code> - <description>" line as an active benefit. The
// first occurrence of a code wins.
func ParseBenefits(text string) []cnis.Benefit {
	out := []cnis.Benefit{}
	seen := map[string]bool{}
	for _, m := range reBenefit.FindAllStringSubmatch(text, -1) {
		code, desc := m[1], collapse(m[2])
		if seen[code] || desc == "" {
			continue
		}
		seen[code] = true
		cat, _ := constants.Canonicalize(desc)
		out = append(out, cnis.Benefit{
			Code:        code,
			Description: desc,
			Status:      cnis.BenefitStatusActive,
			Category:    cat,
		})
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
