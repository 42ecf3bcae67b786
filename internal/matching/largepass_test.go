package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLargePassAssess_HighReliabilityBoostsScore(t *testing.T) {
	persona := newPersona(1, DomainGeneral)
	reliable := newPersona(2, DomainGeneral)
	reliable.Reliability.Score = 0.95
	unreliable := newPersona(3, DomainGeneral)
	unreliable.Reliability.Score = 0.1

	opts := baseOptions(DomainGeneral)
	dist := newGraphDistanceCache(MatchGraph{}, opts.GraphHops)

	reliableResult := largePassAssess(&persona, &reliable, DomainGeneral, opts, dist)
	unreliableResult := largePassAssess(&persona, &unreliable, DomainGeneral, opts, dist)

	assert.Greater(t, reliableResult.Score, unreliableResult.Score)
	assert.Contains(t, reliableResult.PositiveReasons, "highly reliable match history")
	assert.Contains(t, unreliableResult.NegativeReasons, "inconsistent reliability history")
}

func TestLargePassAssess_RedFlagTagsPenalizeScore(t *testing.T) {
	persona := newPersona(1, DomainGeneral)
	clean := newPersona(2, DomainGeneral)
	flagged := newPersona(3, DomainGeneral)
	flagged.Profile.FeedbackSummary.RedFlagTags = []string{"aggressive"}

	opts := baseOptions(DomainGeneral)
	dist := newGraphDistanceCache(MatchGraph{}, opts.GraphHops)

	cleanResult := largePassAssess(&persona, &clean, DomainGeneral, opts, dist)
	flaggedResult := largePassAssess(&persona, &flagged, DomainGeneral, opts, dist)

	assert.Greater(t, cleanResult.Score, flaggedResult.Score)
	assert.NotEmpty(t, flaggedResult.RedFlags)
}

func TestLargePassAssess_BusinessComplementaryRolesScoreHigher(t *testing.T) {
	persona := newPersona(1, DomainBusiness)
	persona.DomainProfiles.Business = &BusinessProfile{Roles: []string{"technical"}, SeekingRoles: []string{"product"}}

	complementary := newPersona(2, DomainBusiness)
	complementary.DomainProfiles.Business = &BusinessProfile{Roles: []string{"product"}, SeekingRoles: []string{"technical"}}

	mismatched := newPersona(3, DomainBusiness)
	mismatched.DomainProfiles.Business = &BusinessProfile{Roles: []string{"design"}, SeekingRoles: []string{"sales"}}

	opts := baseOptions(DomainBusiness)
	dist := newGraphDistanceCache(MatchGraph{}, opts.GraphHops)

	compResult := largePassAssess(&persona, &complementary, DomainBusiness, opts, dist)
	mismatchResult := largePassAssess(&persona, &mismatched, DomainBusiness, opts, dist)

	assert.Greater(t, compResult.Score, mismatchResult.Score)
	assert.Contains(t, compResult.PositiveReasons, "complementary roles")
}

func TestRunLargePass_ReturnsTopKByScoreDescending(t *testing.T) {
	persona := newPersona(1, DomainGeneral)
	var candidates []*Persona
	for i := 2; i <= 5; i++ {
		p := newPersona(i, DomainGeneral)
		p.Reliability.Score = float64(i) / 10
		candidates = append(candidates, &p)
	}
	opts := baseOptions(DomainGeneral)
	opts.LargePassTopK = 2
	dist := newGraphDistanceCache(MatchGraph{}, opts.GraphHops)

	out := runLargePass(&persona, candidates, DomainGeneral, opts, dist)

	assert.Len(t, out, 2)
	assert.GreaterOrEqual(t, out[0].Result.Score, out[1].Result.Score)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -100.0, clamp(-500, -100, 100))
	assert.Equal(t, 100.0, clamp(500, -100, 100))
	assert.Equal(t, 0.0, clamp(0, -100, 100))
}
