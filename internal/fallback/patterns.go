package fallback

import "regexp"

const (
	taxIDPattern = `\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`
	datePattern  = `\b\d{2}/\d{2}/\d{4}\b|\b\d{2}/\d{4}\b`
	moneyPattern = `\b\d{1,3}(?:\.\d{3})*,\d{2}\b`
	nitPattern   = `\d{3}\.\d{5}\.\d{2}-\d`
)

var (
	reTaxID = regexp.MustCompile(taxIDPattern)

	// degraded OCR: separators dropped or replaced by spaces, or a bare 14 digit run
	reLooseTaxID = regexp.MustCompile(`\b\d{2}[. ]?\d{3}[. ]?\d{3} ?/ ?\d{4} ?- ?\d{2}\b|\b\d{14}\b`)

	reRecordMarker = regexp.MustCompile(`(?mi)^[ \t]*(?:seq(?:u[êe]ncia)?\.?[ \t]*:?[ \t]*\d{1,3}\b|\d{1,3}[ \t]+` + nitPattern + `\b)`)
	reTerminal     = regexp.MustCompile(`(?mi)^[ \t]*(?:O INSS poder[áa] rever|Legenda\b|Benef[íi]cios?\b|Observa[çc][õo]es\b)`)

	reDate       = regexp.MustCompile(datePattern)
	reStartLabel = regexp.MustCompile(`(?i)Data\s+(?:de\s+)?In[íi]cio\s*:?\s*(` + datePattern + `)`)
	reEndLabel   = regexp.MustCompile(`(?i)Data\s+(?:de\s+)?(?:Fim|T[ée]rmino|Encerramento)\s*:?\s*(` + datePattern + `)`)

	reMoney = regexp.MustCompile(`(?:R\$\s*)?(` + moneyPattern + `)`)

	// employer names end where the next column label, date or amount begins; labels are matched
	// case-sensitively because names are printed in capitals
	reEmployerStop = regexp.MustCompile(`\b(?:Empregado|Contribuinte|Tipo|Data|Servidor|Agente|Seq)\b|` +
		datePattern + `|R\$|` + moneyPattern + `|` + nitPattern)
	reEmployerLabel = regexp.MustCompile(`(?i)^(?:Origem\s+do\s+V[íi]nculo|Empregador|Raz[ãa]o\s+Social|Nome\s+Empresarial)\s*:?\s*`)
	reOriginLabel   = regexp.MustCompile(`(?i)Origem\s+do\s+V[íi]nculo\s*:?[ \t]*([^\n]*)`)
	reHasLetter     = regexp.MustCompile(`\pL`)
)

// relationshipPatterns are checked in order and the first hit wins, so the public-employee label is
// tested before the plain employee one.
var relationshipPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)empregado\s+(?:ou\s+agente\s+)?p[úu]blico`), "Empregado Público"},
	{regexp.MustCompile(`(?i)\bempregado\b`), "Empregado"},
	{regexp.MustCompile(`(?i)contribuinte\s+individual`), "Contribuinte Individual"},
	{regexp.MustCompile(`(?i)servidor\s+p[úu]blico|agente\s+p[úu]blico|regime\s+pr[óo]prio`), "Servidor Público"},
	{regexp.MustCompile(`(?i)\btrabalhador\b`), "Trabalhador"},
}

var (
	reCPF        = regexp.MustCompile(`(?i)\bCPF\s*:?\s*(\d{3}\.\d{3}\.\d{3}-\d{2})`)
	reNIT        = regexp.MustCompile(`(?i)\bNIT(?:\s*/\s*PIS\s*/\s*PASEP)?\s*:?\s*(` + nitPattern + `|\d{11}\b)`)
	reName       = regexp.MustCompile(`(?im)\bNome(?:\s+do\s+(?:Filiado|Segurado))?\s*:[ \t]*(.+?)(?:[ \t]+(?:CPF|NIT|Data\s+de\s+Nascimento|Nome\s+da\s+M[ãa]e)\b|$)`)
	reBirthDate  = regexp.MustCompile(`(?i)Data\s+de\s+Nascimento\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reMotherName = regexp.MustCompile(`(?im)\bNome\s+da\s+M[ãa]e\s*:?[ \t]*(.+?)(?:[ \t]+(?:CPF|NIT|Data\s+de\s+Nascimento)\b|$)`)
	reBenefit    = regexp.MustCompile(`(?i)Benef[íi]cio\s*:?\s*(\d{1,3})\s*-\s*([^\n]+)`)
)
