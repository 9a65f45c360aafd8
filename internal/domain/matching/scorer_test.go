package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow keeps experience scoring deterministic across test runs.
var fixedNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testProfile(id string, mutate func(*Profile)) *Profile {
	p := &Profile{
		ID:               ParticipantID(id),
		Kind:             KindExhibitor,
		DisplayName:      "Participant " + id,
		GeographicRegion: "Europe",
		CreatedAt:        time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestScorer_Score_WorkedExample(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	viewer := testProfile("viewer", func(p *Profile) {
		p.Sectors = NewTagSet("logistics", "shipping")
		p.ParticipationObjectives = NewTagSet("partnership")
		p.CollaborationTypes = NewTagSet("joint-venture")
		p.ThematicInterests = NewTagSet("smart ports")
	})
	candidate := testProfile("candidate", func(p *Profile) {
		p.Sectors = NewTagSet("logistics", "shipping")
		p.ParticipationObjectives = NewTagSet("partnership", "networking")
		p.CollaborationTypes = NewTagSet("distribution")
		p.ThematicInterests = NewTagSet("smart ports", "automation")
		// five full calendar years of tenure at the fixed clock
		p.CreatedAt = time.Date(2021, time.June, 15, 0, 0, 0, 0, time.UTC)
	})

	factors := scorer.Score(viewer, candidate)
	assert.InDelta(t, 1.0, factors.SectorAlignment, 1e-9)
	assert.InDelta(t, 0.5, factors.ObjectiveAlignment, 1e-9)
	assert.InDelta(t, 1.0, factors.GeographicRelevance, 1e-9)
	assert.InDelta(t, 0.5, factors.ExperienceLevel, 1e-9)
	assert.InDelta(t, 0.0, factors.CollaborationPotential, 1e-9)

	// 0.30*1.0 + 0.25*0.5 + 0.20*1.0 + 0.10*0.5 + 0.15*0.0 = 0.675
	assert.Equal(t, 68, scorer.OverallScore(factors))
}

func TestScorer_Score_EmptyProfiles(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	viewer := &Profile{ID: "a"}
	candidate := &Profile{ID: "b"}

	factors := scorer.Score(viewer, candidate)
	assert.Zero(t, factors.SectorAlignment)
	assert.Zero(t, factors.ObjectiveAlignment)
	assert.Zero(t, factors.CollaborationPotential)
	assert.Zero(t, factors.ExperienceLevel)
	// unset regions still land on the geographic floor
	assert.InDelta(t, GeoFloorScore, factors.GeographicRelevance, 1e-9)

	// 0.20 * 0.6 = 0.12
	assert.Equal(t, 12, scorer.OverallScore(factors))
}

func TestScorer_Score_SymmetricFactors(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	a := testProfile("a", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
		p.ParticipationObjectives = NewTagSet("partnership", "sourcing")
		p.CollaborationTypes = NewTagSet("joint-venture")
		p.GeographicRegion = "Asia"
	})
	b := testProfile("b", func(p *Profile) {
		p.Sectors = NewTagSet("logistics", "energy")
		p.ParticipationObjectives = NewTagSet("partnership")
		p.CollaborationTypes = NewTagSet("joint-venture", "licensing")
		p.GeographicRegion = "Europe"
		p.CreatedAt = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	})

	ab := scorer.Score(a, b)
	ba := scorer.Score(b, a)

	assert.Equal(t, ab.SectorAlignment, ba.SectorAlignment)
	assert.Equal(t, ab.ObjectiveAlignment, ba.ObjectiveAlignment)
	assert.Equal(t, ab.GeographicRelevance, ba.GeographicRelevance)
	assert.Equal(t, ab.CollaborationPotential, ba.CollaborationPotential)

	// experience is candidate-only, so it is the one asymmetric factor
	assert.InDelta(t, 1.0, ab.ExperienceLevel, 1e-9)
	assert.InDelta(t, 0.5, ba.ExperienceLevel, 1e-9)
}

func TestScorer_ExperienceLevel_Capped(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	veteran := testProfile("v", func(p *Profile) {
		p.CreatedAt = time.Date(2005, time.January, 1, 0, 0, 0, 0, time.UTC)
	})
	factors := scorer.Score(testProfile("a", nil), veteran)
	assert.InDelta(t, 1.0, factors.ExperienceLevel, 1e-9)
}

func TestRegionAdjacency_Score(t *testing.T) {
	adj := DefaultRegionAdjacency()

	tests := []struct {
		name string
		a, b Region
		want float64
	}{
		{"same region", "Europe", "Europe", GeoSameRegionScore},
		{"same region different case", "europe", "Europe", GeoSameRegionScore},
		{"adjacent pair", "Europe", "Africa", GeoAdjacentScore},
		{"adjacent pair reversed", "Africa", "Europe", GeoAdjacentScore},
		{"unrelated pair", "Europe", "Asia", GeoFloorScore},
		{"unset regions", "", "", GeoFloorScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, adj.Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestFactorWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultFactorWeights().Validate())

	negative := FactorWeights{Sector: -0.1, Objective: 0.5, Geographic: 0.3, Experience: 0.2, Collaboration: 0.1}
	assert.ErrorIs(t, negative.Validate(), ErrInvalidWeights)

	offSum := FactorWeights{Sector: 0.5, Objective: 0.5, Geographic: 0.5}
	assert.ErrorIs(t, offSum.Validate(), ErrInvalidWeights)
}

func TestNewScorer_RejectsInvalidWeights(t *testing.T) {
	_, err := NewScorer(WithWeights(FactorWeights{Sector: 1.5}))
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestScorer_Reasons_ThresholdsAndSharedInterests(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	viewer := testProfile("viewer", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
		p.ParticipationObjectives = NewTagSet("partnership")
		p.CollaborationTypes = NewTagSet("joint-venture")
		p.ThematicInterests = NewTagSet("smart ports")
	})
	candidate := testProfile("candidate", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
		p.ParticipationObjectives = NewTagSet("partnership", "networking")
		p.CollaborationTypes = NewTagSet("distribution")
		p.ThematicInterests = NewTagSet("smart ports")
	})

	factors := scorer.Score(viewer, candidate)
	reasons := scorer.Reasons(viewer, candidate, factors)

	// sector 1.0 > 0.7, geo 1.0 > 0.8; objective 0.5 and collaboration 0.0 stay silent
	require.Len(t, reasons, 3)
	assert.Equal(t, "Secteurs d'activité complémentaires", reasons[0])
	assert.Equal(t, "Proximité géographique", reasons[1])
	assert.Equal(t, "Intérêts communs: smart ports", reasons[2])
}

func TestScorer_Reasons_CappedAtMax(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	viewer := testProfile("viewer", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
		p.ParticipationObjectives = NewTagSet("partnership")
		p.CollaborationTypes = NewTagSet("joint-venture")
		p.ThematicInterests = NewTagSet("smart ports", "automation")
	})
	twin := testProfile("twin", func(p *Profile) {
		p.Sectors = viewer.Sectors
		p.ParticipationObjectives = viewer.ParticipationObjectives
		p.CollaborationTypes = viewer.CollaborationTypes
		p.ThematicInterests = viewer.ThematicInterests
	})

	factors := scorer.Score(viewer, twin)
	reasons := scorer.Reasons(viewer, twin, factors)

	// all four threshold rules fire, leaving no room for shared interests
	require.Len(t, reasons, MaxReasons)
	assert.NotContains(t, reasons, "Intérêts communs: smart ports, automation")
}

func TestScorer_Reasons_NamesAtMostTwoInterests(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	viewer := testProfile("viewer", func(p *Profile) {
		p.ThematicInterests = NewTagSet("smart ports", "automation", "hydrogen")
		p.GeographicRegion = "Asia"
	})
	candidate := testProfile("candidate", func(p *Profile) {
		p.ThematicInterests = viewer.ThematicInterests
		p.GeographicRegion = "Oceania"
	})

	factors := scorer.Score(viewer, candidate)
	reasons := scorer.Reasons(viewer, candidate, factors)

	require.Len(t, reasons, 1)
	assert.Equal(t, "Intérêts communs: smart ports, automation", reasons[0])
}

func TestOverallScore_Bounds(t *testing.T) {
	scorer := MustScorer(WithClock(fixedClock))

	assert.Equal(t, 0, scorer.OverallScore(CompatibilityFactors{}))

	perfect := CompatibilityFactors{
		SectorAlignment:        1,
		ObjectiveAlignment:     1,
		GeographicRelevance:    1,
		ExperienceLevel:        1,
		CollaborationPotential: 1,
	}
	assert.Equal(t, 100, scorer.OverallScore(perfect))

	// out-of-range inputs are clamped before weighting
	wild := CompatibilityFactors{SectorAlignment: 7, ObjectiveAlignment: -3}
	clamped := scorer.OverallScore(wild)
	assert.GreaterOrEqual(t, clamped, 0)
	assert.LessOrEqual(t, clamped, 100)
}
