package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/cnis"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestSuggestEmptyHistory(t *testing.T) {
	assert.Equal(t, constants.AgeRetirement, Suggest(nil, now))
	assert.Equal(t, constants.AgeRetirement, Suggest([]cnis.EmploymentRecord{}, now))
}

func TestSuggestPublicServiceWins(t *testing.T) {
	recs := []cnis.EmploymentRecord{
		{Employer: "A", StartDate: "1970-01-01", EndDate: "2010-01-01", RelationshipType: constants.RelEmployee},
		{Employer: "B", StartDate: "2010-01-02", RelationshipType: "servidor público estadual"},
	}
	assert.Equal(t, constants.PublicServantRetire, Suggest(recs, now))

	recs = []cnis.EmploymentRecord{{Employer: "C", RelationshipType: "Public employee"}}
	assert.Equal(t, constants.PublicServantRetire, Suggest(recs, now))
}

func TestSuggestByYears(t *testing.T) {
	long := []cnis.EmploymentRecord{
		{Employer: "A", StartDate: "1980-01-01", EndDate: "1999-12-31"},
		{Employer: "B", StartDate: "2000-01-01"}, // ongoing
	}
	assert.GreaterOrEqual(t, ContributionYears(long, now), 35.0)
	assert.Equal(t, constants.ContributionRetirement, Suggest(long, now))

	special := []cnis.EmploymentRecord{{Employer: "A", StartDate: "1990-01-01", EndDate: "2018-01-01"}}
	assert.Equal(t, constants.SpecialRetirement, Suggest(special, now))

	short := []cnis.EmploymentRecord{
		{Employer: "A", StartDate: "2010-01-01", EndDate: "2015-01-01"},
		{Employer: "B"}, // no start date: contributes nothing
	}
	assert.InDelta(t, 5.0, ContributionYears(short, now), 0.01)
	assert.Equal(t, constants.AgeRetirement, Suggest(short, now))
}

func TestContributionYearsIgnoresInvertedSpans(t *testing.T) {
	recs := []cnis.EmploymentRecord{{Employer: "A", StartDate: "2020-01-01", EndDate: "2010-01-01"}}
	assert.Zero(t, ContributionYears(recs, now))
}
