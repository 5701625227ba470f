// Package classify suggests a retirement category from a normalized employment history. The result
// is advisory and never blocks processing.
package classify

import (
	"time"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
	"github.com/joseph-ayodele/cnis-extractor/internal/normalize"
)

const (
	ContributionYearsThreshold = 35.0
	SpecialYearsThreshold      = 25.0
	daysPerYear                = 365.25
)

// Suggest applies, in order: empty history, any public-service relationship, then total years.
func Suggest(records []cnis.EmploymentRecord, now time.Time) constants.BenefitCategory {
	if len(records) == 0 {
		return constants.AgeRetirement
	}
	for _, r := range records {
		if constants.IsPublicService(r.RelationshipType) {
			return constants.PublicServantRetire
		}
	}
	years := ContributionYears(records, now)
	switch {
	case years >= ContributionYearsThreshold:
		return constants.ContributionRetirement
	case years >= SpecialYearsThreshold:
		return constants.SpecialRetirement
	default:
		return constants.AgeRetirement
	}
}

// ContributionYears sums (end or now) - start per record. Records without a start date, or whose
// span is negative, add nothing. Overlapping periods are counted twice.
func ContributionYears(records []cnis.EmploymentRecord, now time.Time) float64 {
	var total float64
	for _, r := range records {
		start, ok := normalize.ParseCanonical(r.StartDate)
		if !ok {
			continue
		}
		end, ok := normalize.ParseCanonical(r.EndDate)
		if !ok {
			end = now
		}
		if d := end.Sub(start); d > 0 {
			total += d.Hours() / 24 / daysPerYear
		}
	}
	return total
}
