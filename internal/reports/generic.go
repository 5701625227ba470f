package reports

import (
	"regexp"

	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

// GenericIndex is stored for generic documents. It exists for search and indexing only.
type GenericIndex struct {
	Keywords    []string  `json:"palavras_chave"`
	Dates       []string  `json:"datas"`
	Values      []float64 `json:"valores"`
	TextLength  int       `json:"text_length"`
	ProcessedAt string    `json:"processado_em"`
}

var genericKeywords = []string{
	"aposentadoria",
	"beneficio",
	"inss",
	"auxilio",
	"pensao",
	"contribuicao",
	"pericia",
	"laudo",
	"cnis",
	"ctps",
	"ppp",
	"requerimento",
	"indeferimento",
	"recurso",
	"sentenca",
	"processo",
}

var (
	reIndexDate  = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b|\b\d{2}/\d{4}\b`)
	reIndexMoney = regexp.MustCompile(`(?:R\$\s*)?\b(\d{1,3}(?:\.\d{3})*,\d{2})\b`)
)

// HarvestGeneric collects vocabulary hits, every valid date (deduplicated, in order of appearance) and
// every monetary amount.
func HarvestGeneric(text string) GenericIndex {
	idx := GenericIndex{
		Keywords:   matchKeywords(text, genericKeywords),
		Dates:      []string{},
		Values:     []float64{},
		TextLength: len(text),
	}
	seen := map[string]bool{}
	for _, tok := range reIndexDate.FindAllString(text, -1) {
		if d := normalize.Date(tok); d != "" && !seen[d] {
			seen[d] = true
			idx.Dates = append(idx.Dates, d)
		}
	}
	for _, m := range reIndexMoney.FindAllStringSubmatch(text, -1) {
		if v, ok := normalize.ParseMoney(m[1]); ok {
			idx.Values = append(idx.Values, v)
		}
	}
	return idx
}
