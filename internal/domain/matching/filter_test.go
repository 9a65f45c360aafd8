package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixtures() []*Profile {
	return []*Profile{
		testProfile("p1", func(p *Profile) {
			p.DisplayName = "Marseille Port Services"
			p.Description = "Pilotage et remorquage"
			p.Sectors = NewTagSet("logistics")
			p.GeographicRegion = "Europe"
			p.CompanySizeBand = "50-200"
		}),
		testProfile("p2", func(p *Profile) {
			p.DisplayName = "Casablanca Freight"
			p.Sectors = NewTagSet("logistics", "shipping")
			p.GeographicRegion = "Africa"
			p.CompanySizeBand = "1-50"
		}),
		testProfile("p3", func(p *Profile) {
			p.DisplayName = "Singapore Terminal Tech"
			p.Sectors = NewTagSet("technology")
			p.GeographicRegion = "Asia"
			p.CompanySizeBand = "200+"
		}),
	}
}

func TestFilter_EmptyCriteriaReturnsAll(t *testing.T) {
	profiles := filterFixtures()

	result := Filter(profiles, FilterCriteria{})
	assert.Equal(t, profiles, result)

	blank := FilterCriteria{Keyword: "   ", Sectors: []string{"", "  "}}
	assert.Equal(t, profiles, Filter(profiles, blank))
}

func TestFilter_AnyOfWithinCriterion(t *testing.T) {
	profiles := filterFixtures()

	result := Filter(profiles, FilterCriteria{Sectors: []string{"shipping", "technology"}})
	require.Len(t, result, 2)
	assert.Equal(t, ParticipantID("p2"), result[0].ID)
	assert.Equal(t, ParticipantID("p3"), result[1].ID)
}

func TestFilter_AndAcrossCriteria(t *testing.T) {
	profiles := filterFixtures()

	result := Filter(profiles, FilterCriteria{
		Sectors: []string{"logistics"},
		Regions: []string{"africa"},
	})
	require.Len(t, result, 1)
	assert.Equal(t, ParticipantID("p2"), result[0].ID)

	// every criterion must hold at once
	none := Filter(profiles, FilterCriteria{
		Sectors: []string{"logistics"},
		Regions: []string{"Asia"},
	})
	assert.Empty(t, none)
}

func TestFilter_KeywordIsCaseInsensitiveSubstring(t *testing.T) {
	profiles := filterFixtures()

	byName := Filter(profiles, FilterCriteria{Keyword: "MARSEILLE"})
	require.Len(t, byName, 1)
	assert.Equal(t, ParticipantID("p1"), byName[0].ID)

	byDescription := Filter(profiles, FilterCriteria{Keyword: "remorquage"})
	require.Len(t, byDescription, 1)
	assert.Equal(t, ParticipantID("p1"), byDescription[0].ID)
}

func TestFilter_CompanySizeBand(t *testing.T) {
	profiles := filterFixtures()

	result := Filter(profiles, FilterCriteria{CompanySizeBands: []string{"200+"}})
	require.Len(t, result, 1)
	assert.Equal(t, ParticipantID("p3"), result[0].ID)
}

func TestFilter_StableAndIdempotent(t *testing.T) {
	profiles := filterFixtures()
	criteria := FilterCriteria{Sectors: []string{"logistics"}}

	once := Filter(profiles, criteria)
	twice := Filter(once, criteria)

	assert.Equal(t, once, twice)
	// relative order of the source slice is preserved
	require.Len(t, once, 2)
	assert.Equal(t, ParticipantID("p1"), once[0].ID)
	assert.Equal(t, ParticipantID("p2"), once[1].ID)
}

func TestFilter_SkipsNilProfiles(t *testing.T) {
	profiles := []*Profile{nil, testProfile("p1", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
	})}

	result := Filter(profiles, FilterCriteria{Sectors: []string{"logistics"}})
	require.Len(t, result, 1)
	assert.Equal(t, ParticipantID("p1"), result[0].ID)
}
