package constants

import (
	"strings"
)

type BenefitCategory string

const (
	AgeRetirement          BenefitCategory = "aposentadoria_idade"
	PublicServantRetire    BenefitCategory = "aposentadoria_servidor_publico"
	ContributionRetirement BenefitCategory = "aposentadoria_tempo_contribuicao"
	SpecialRetirement      BenefitCategory = "aposentadoria_especial"
	DisabilityRetirement   BenefitCategory = "aposentadoria_invalidez"
	SicknessAid            BenefitCategory = "auxilio_doenca"
	AccidentAid            BenefitCategory = "auxilio_acidente"
	SurvivorPension        BenefitCategory = "pensao_morte"
	MaternityPay           BenefitCategory = "salario_maternidade"
	OtherBenefit           BenefitCategory = "outro"
)

var allBenefitCategories = []BenefitCategory{
	AgeRetirement,
	PublicServantRetire,
	ContributionRetirement,
	SpecialRetirement,
	DisabilityRetirement,
	SicknessAid,
	AccidentAid,
	SurvivorPension,
	MaternityPay,
	OtherBenefit,
}

// benefitKeywords is checked in order; more specific phrases come first.
var benefitKeywords = []struct {
	needle string
	cat    BenefitCategory
}{
	{"tempo de contribui", ContributionRetirement},
	{"especial", SpecialRetirement},
	{"invalidez", DisabilityRetirement},
	{"incapacidade permanente", DisabilityRetirement},
	{"por idade", AgeRetirement},
	{"servidor", PublicServantRetire},
	{"auxilio-doenca", SicknessAid},
	{"auxilio doenca", SicknessAid},
	{"incapacidade temporaria", SicknessAid},
	{"auxilio-acidente", AccidentAid},
	{"auxilio acidente", AccidentAid},
	{"pensao por morte", SurvivorPension},
	{"maternidade", MaternityPay},
}

// Canonicalize maps a free-text benefit description (e.g. "APOSENTADORIA POR IDADE") to a category.
func Canonicalize(input string) (BenefitCategory, bool) {
	if strings.TrimSpace(input) == "" {
		return OtherBenefit, false
	}
	normalized := FoldAccents(strings.ToLower(strings.TrimSpace(input)))

	for _, cat := range allBenefitCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}
	for _, kw := range benefitKeywords {
		if strings.Contains(normalized, kw.needle) {
			return kw.cat, true
		}
	}
	return OtherBenefit, false
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "ê", "e", "è", "e",
	"í", "i", "î", "i",
	"ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
	"Á", "A", "À", "A", "Â", "A", "Ã", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U", "Ü", "U",
	"Ç", "C",
)

// FoldAccents strips Portuguese diacritics so label matching tolerates OCR/encoding loss.
func FoldAccents(s string) string {
	return accentFolder.Replace(s)
}
