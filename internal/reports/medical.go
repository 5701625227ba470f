// Package reports covers the non-statement document routes: label-based extraction for medical
// reports and keyword/date/amount harvesting for generic documents.
package reports

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

// MedicalReport is the payload stored for medical_report documents.
type MedicalReport struct {
	CID          string   `json:"cid,omitempty"`
	CIDs         []string `json:"cids"`
	Examiner     string   `json:"medico,omitempty"`
	CRM          string   `json:"crm,omitempty"`
	ExamDate     string   `json:"data_exame,omitempty"`
	Observations []string `json:"observacoes"`
	TextLength   int      `json:"text_length"`
	ProcessedAt  string   `json:"processado_em"`
}

// observationKeywords are matched as accent-insensitive substrings, in this order.
var observationKeywords = []string{
	"incapacidade total",
	"incapacidade parcial",
	"incapacidade",
	"permanente",
	"temporaria",
	"afastamento",
	"invalidez",
	"acidente de trabalho",
	"doenca ocupacional",
	"cirurgia",
	"fisioterapia",
	"limitacao",
	"deficiencia",
	"readaptacao",
	"reabilitacao",
}

var (
	reCID      = regexp.MustCompile(`(?i)\bCID(?:[ -]?10)?\s*[:\-]?\s*([A-Z]\d{2}(?:\.\d{1,2})?)\b`)
	reExaminer = regexp.MustCompile(`(?im)(?:\bDra?\.|M[ée]dic[oa](?:\s+(?:Perito|Examinador|Respons[áa]vel))?\s*:)[ \t]*([^\n,;]+?)(?:[ \t]*[-,;]?[ \t]*\bCRM\b|$)`)
	reCRM      = regexp.MustCompile(`(?i)\bCRM\s*[:\-/]?\s*(?:([A-Z]{2})\s*[\-/ ]\s*)?(\d{4,7})\b`)
	reExamDate = regexp.MustCompile(`(?i)Data\s+(?:d[oae]\s+)?(?:Exame|Per[íi]cia|Atendimento|Consulta)\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reAnyDate  = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
)

// ExtractMedical pulls the diagnosis code, examiner, license id, exam date and observation keywords.
func ExtractMedical(text string) MedicalReport {
	rep := MedicalReport{CIDs: []string{}, Observations: []string{}, TextLength: len(text)}

	seen := map[string]bool{}
	for _, m := range reCID.FindAllStringSubmatch(text, -1) {
		code := strings.ToUpper(m[1])
		if !seen[code] {
			seen[code] = true
			rep.CIDs = append(rep.CIDs, code)
		}
	}
	if len(rep.CIDs) > 0 {
		rep.CID = rep.CIDs[0]
	}

	if m := reExaminer.FindStringSubmatch(text); m != nil {
		rep.Examiner = strings.Join(strings.Fields(m[1]), " ")
	}
	if m := reCRM.FindStringSubmatch(text); m != nil {
		rep.CRM = m[2]
		if m[1] != "" {
			rep.CRM += "/" + strings.ToUpper(m[1])
		}
	}

	if m := reExamDate.FindStringSubmatch(text); m != nil {
		rep.ExamDate = normalize.Date(m[1])
	}
	if rep.ExamDate == "" {
		for _, tok := range reAnyDate.FindAllString(text, -1) {
			if d := normalize.Date(tok); d != "" {
				rep.ExamDate = d
				break
			}
		}
	}

	rep.Observations = matchKeywords(text, observationKeywords)
	return rep
}

func matchKeywords(text string, vocabulary []string) []string {
	folded := constants.FoldAccents(strings.ToLower(text))
	out := []string{}
	for _, kw := range vocabulary {
		if strings.Contains(folded, kw) {
			out = append(out, kw)
		}
	}
	return out
}
