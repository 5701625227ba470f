package normalize

import (
	"strconv"
	"strings"
)

var moneyCleaner = strings.NewReplacer("R$", "", " ", "", " ", "")

// ParseMoney converts a Brazilian-formatted amount ("1.234,56") into a float. The thousands separator
// is dropped and the decimal comma becomes a point before parsing. Unparseable input reports false.
func ParseMoney(s string) (float64, bool) {
	s = moneyCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Money is ParseMoney with the default-zero convention used for remuneration fields.
func Money(s string) float64 {
	v, _ := ParseMoney(s)
	return v
}
