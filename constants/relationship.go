package constants

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Canonical relationship-type labels, as written on the statement.
const (
	RelPublicEmployee         = "Empregado Público"
	RelEmployee               = "Empregado"
	RelIndividualContributor  = "Contribuinte Individual"
	RelPublicServant          = "Servidor Público"
	RelWorker                 = "Trabalhador"
	RelOptionalContributor    = "Contribuinte Facultativo"
	RelDomesticEmployee       = "Empregado Doméstico"
	RelSpecialInsured         = "Segurado Especial"
	maxRelationshipLabelEdits = 3
)

var relationshipLabels = []string{
	RelPublicEmployee,
	RelEmployee,
	RelIndividualContributor,
	RelPublicServant,
	RelWorker,
	RelOptionalContributor,
	RelDomesticEmployee,
	RelSpecialInsured,
}

var relationshipSynonyms = map[string]string{
	"empregado ou agente publico": RelPublicEmployee,
	"agente publico":              RelPublicServant,
	"regime proprio":              RelPublicServant,
	"contrib. individual":         RelIndividualContributor,
	"ci":                          RelIndividualContributor,
	"facultativo":                 RelOptionalContributor,
	"domestico":                   RelDomesticEmployee,
	"trabalhador avulso":          RelWorker,
}

// CanonicalRelationship maps a noisy relationship label (external tool output, OCR text) to one of
// the canonical labels. Labels that are too far from every known label are returned trimmed as-is.
func CanonicalRelationship(label string) string {
	trimmed := strings.Join(strings.Fields(label), " ")
	if trimmed == "" {
		return ""
	}
	key := FoldAccents(strings.ToLower(trimmed))
	if canon, ok := relationshipSynonyms[key]; ok {
		return canon
	}

	best, bestDist := "", maxRelationshipLabelEdits+1
	for _, canon := range relationshipLabels {
		d := levenshtein.Distance(key, FoldAccents(strings.ToLower(canon)), nil)
		if d < bestDist {
			best, bestDist = canon, d
		}
	}
	if best != "" && bestDist <= maxRelationshipLabelEdits {
		return best
	}
	return trimmed
}

// IsPublicService reports whether a relationship label denotes public service.
func IsPublicService(label string) bool {
	l := FoldAccents(strings.ToLower(label))
	for _, needle := range []string{"servidor", "publico", "servant", "public"} {
		if strings.Contains(l, needle) {
			return true
		}
	}
	return false
}
