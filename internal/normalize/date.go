// Package normalize converts raw textual dates and monetary strings found on statements into
// canonical values. Malformed input never produces an error: it yields an absent value.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical output form for calendar dates.
const DateLayout = "2006-01-02"

var (
	reDayMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reMonthYear    = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	reISODate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseDate accepts dd/mm/yyyy or mm/yyyy (first day of that month). Any other shape, or a date that
// does not exist on the calendar, reports false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if m := reDayMonthYear.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[2], m[1])
	}
	if m := reMonthYear.FindStringSubmatch(s); m != nil {
		return calendarDate(m[2], m[1], "1")
	}
	return time.Time{}, false
}

// Date returns the canonical YYYY-MM-DD form of s, or "" when s is unparseable.
func Date(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

// CoerceDate is Date that also accepts an already canonical YYYY-MM-DD value.
func CoerceDate(s string) string {
	s = strings.TrimSpace(s)
	if reISODate.MatchString(s) {
		if t, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
			return t.Format(DateLayout)
		}
		return ""
	}
	if len(s) > 10 && reISODate.MatchString(s[:10]) && (s[10] == 'T' || s[10] == ' ') {
		return CoerceDate(s[:10])
	}
	return Date(s)
}

// ParseCanonical parses a YYYY-MM-DD value produced by Date/CoerceDate.
func ParseCanonical(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func calendarDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
