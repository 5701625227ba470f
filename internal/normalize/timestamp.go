package normalize

import (
	"strings"
	"time"
)

// TimestampLayout is the SQL-compatible form every timestamp is normalized into.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order. RFC3339 also accepts fractional seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	TimestampLayout,
	"2006-01-02 15:04:05.999999999",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	DateLayout,
}

// FormatTimestamp normalizes an externally supplied timestamp into "YYYY-MM-DD HH:MM:SS". Empty or
// unparseable input is replaced by now(); it never fails. A nil now uses time.Now.
func FormatTimestamp(s string, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(TimestampLayout)
			}
		}
	}
	return now().Format(TimestampLayout)
}
