package constants

// RunStatus is the canonical status for rows in extraction_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"   // in progress
	RunStatusProcessed RunStatus = "PROCESSED" // document persisted
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure, document untouched
)

// Source records where the employment data of a statement came from.
type Source string

const (
	SourceExternal Source = "external"
	SourceFallback Source = "fallback"
	SourceMixed    Source = "mixed"
	SourceNone     Source = "none"
)

// DedupPolicy controls what happens to relationships created by an earlier run of the same document.
type DedupPolicy string

const (
	// DedupAppend always inserts fresh rows; reprocessing duplicates them.
	DedupAppend DedupPolicy = "append"
	// DedupReplace deletes rows previously derived from the same document before inserting.
	DedupReplace DedupPolicy = "replace"
)

// ParseDedupPolicy maps a config string to a policy, defaulting to DedupReplace.
func ParseDedupPolicy(s string) (DedupPolicy, bool) {
	switch DedupPolicy(s) {
	case DedupAppend:
		return DedupAppend, true
	case DedupReplace, "":
		return DedupReplace, true
	}
	return DedupReplace, false
}
