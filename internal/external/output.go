package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

// Output is the tool's result after lenient decoding and normalization.
type Output struct {
	ClientName   string
	ClientCPF    string
	PersonalData cnis.PersonalData
	Employment   []cnis.EmploymentRecord
	Benefits     []cnis.Benefit
	Observations []string
	TextLength   int
	ProcessedAt  string // as emitted by the tool; normalized by the caller
}

const outputSchemaJSON = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "object",
      "required": ["vinculos_empregaticios"],
      "properties": {
        "vinculos_empregaticios": {"type": "array", "items": {"type": "object"}},
        "dados_pessoais": {"type": ["object", "null"]},
        "beneficios": {"type": ["array", "null"]}
      }
    },
    "text_length": {"type": ["number", "null"]}
  }
}`

var outputSchema = jsonschema.MustCompileString("external-output.json", outputSchemaJSON)

type wireOutput struct {
	Data        wireData        `json:"data"`
	TextLength  json.RawMessage `json:"text_length"`
	ProcessedAt string          `json:"processado_em"`
}

type wireData struct {
	ClientName   string          `json:"client_name"`
	ClientCPF    string          `json:"client_cpf"`
	PersonalData *wirePersonal   `json:"dados_pessoais"`
	Employment   []wireRecord    `json:"vinculos_empregaticios"`
	Benefits     []wireBenefit   `json:"beneficios"`
	Observations json.RawMessage `json:"observacoes"`
	TextLength   json.RawMessage `json:"text_length"`
	ProcessedAt  string          `json:"processado_em"`
	// personal data is sometimes flattened into data itself
	wirePersonal
}

type wirePersonal struct {
	Name       string `json:"nome"`
	CPF        string `json:"cpf"`
	BirthDate  string `json:"data_nascimento"`
	MotherName string `json:"nome_mae"`
	NIT        string `json:"nit"`
}

type wireRecord struct {
	Employer         string          `json:"empregador"`
	TaxID            string          `json:"cnpj"`
	StartDate        string          `json:"data_inicio"`
	EndDate          string          `json:"data_fim"`
	RelationshipType string          `json:"tipo_vinculo"`
	LastRemuneration json.RawMessage `json:"ultima_remuneracao"`
}

type wireBenefit struct {
	Code        json.RawMessage `json:"codigo"`
	Description string          `json:"descricao"`
	Status      string          `json:"situacao"`
	Category    string          `json:"categoria"`
}

// ParseOutput locates the first balanced JSON object in raw, checks it against the output contract
// and decodes it. Every failure wraps ErrMalformedOutput.
func ParseOutput(raw string) (*Output, error) {
	span, ok := FindJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no json object in output", ErrMalformedOutput)
	}
	var generic any
	if err := json.Unmarshal([]byte(span), &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := outputSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	var w wireOutput
	if err := json.Unmarshal([]byte(span), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return w.toOutput(), nil
}

func (w wireOutput) toOutput() *Output {
	d := w.Data
	out := &Output{
		ClientName:   strings.TrimSpace(d.ClientName),
		ClientCPF:    strings.TrimSpace(d.ClientCPF),
		Employment:   make([]cnis.EmploymentRecord, 0, len(d.Employment)),
		Benefits:     make([]cnis.Benefit, 0, len(d.Benefits)),
		Observations: rawStrings(d.Observations),
		ProcessedAt:  firstNonEmpty(w.ProcessedAt, d.ProcessedAt),
	}

	personal := d.wirePersonal
	if d.PersonalData != nil {
		personal = *d.PersonalData
	}
	out.PersonalData = cnis.PersonalData{
		Name:       strings.TrimSpace(personal.Name),
		CPF:        strings.TrimSpace(personal.CPF),
		BirthDate:  normalize.CoerceDate(personal.BirthDate),
		MotherName: strings.TrimSpace(personal.MotherName),
		NIT:        strings.TrimSpace(personal.NIT),
	}.Merge(cnis.PersonalData{
		Name:       strings.TrimSpace(d.Name),
		CPF:        strings.TrimSpace(d.CPF),
		BirthDate:  normalize.CoerceDate(d.BirthDate),
		MotherName: strings.TrimSpace(d.MotherName),
		NIT:        strings.TrimSpace(d.NIT),
	})

	for _, r := range d.Employment {
		rec := cnis.EmploymentRecord{
			Employer:         strings.Join(strings.Fields(r.Employer), " "),
			TaxID:            strings.TrimSpace(r.TaxID),
			StartDate:        normalize.CoerceDate(r.StartDate),
			EndDate:          normalize.CoerceDate(r.EndDate),
			RelationshipType: constants.CanonicalRelationship(r.RelationshipType),
			LastRemuneration: rawMoney(r.LastRemuneration),
		}
		if rec.Valid() {
			out.Employment = append(out.Employment, rec)
		}
	}

	for _, b := range d.Benefits {
		code := rawString(b.Code)
		if code == "" && strings.TrimSpace(b.Description) == "" {
			continue
		}
		cat, ok := constants.Canonicalize(b.Category)
		if !ok {
			cat, _ = constants.Canonicalize(b.Description)
		}
		out.Benefits = append(out.Benefits, cnis.Benefit{
			Code:        code,
			Description: strings.TrimSpace(b.Description),
			Status:      strings.TrimSpace(b.Status),
			Category:    cat,
		})
	}

	if n, ok := rawInt(w.TextLength); ok {
		out.TextLength = n
	} else if n, ok := rawInt(d.TextLength); ok {
		out.TextLength = n
	}
	return out
}

// FindJSONObject returns the first balanced top-level {...} span in s. Braces inside JSON strings
// are ignored.
func FindJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func rawMoney(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		return normalize.Money(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int(f), true
}

// rawStrings accepts a string array, a single string or null.
func rawStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	if s := rawString(raw); s != "" {
		return []string{s}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
