package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSmallPass_RanksByScoreDescending(t *testing.T) {
	persona := newPersona(1, DomainGeneral)
	strong := newPersona(2, DomainGeneral)
	strong.Reliability.Score = 1.0
	weak := newPersona(3, DomainGeneral)
	weak.Profile.Interests = nil
	weak.Reliability.Score = 0.0

	opts := baseOptions(DomainGeneral)
	dist := newGraphDistanceCache(MatchGraph{}, opts.GraphHops)
	result := runSmallPass(&persona, []*Persona{&weak, &strong}, DomainGeneral, opts, dist)

	a := assert.New(t)
	a.Len(result.RankedIDs, 2)
	a.Equal(2, result.RankedIDs[0], "higher reliability and shared interests should rank first")
}

func TestRunSmallPass_TopKTruncates(t *testing.T) {
	persona := newPersona(1, DomainGeneral)
	var candidates []*Persona
	for i := 2; i <= 5; i++ {
		p := newPersona(i, DomainGeneral)
		candidates = append(candidates, &p)
	}
	opts := baseOptions(DomainGeneral)
	opts.SmallPassTopK = 2
	dist := newGraphDistanceCache(MatchGraph{}, opts.GraphHops)

	result := runSmallPass(&persona, candidates, DomainGeneral, opts, dist)
	assert.Len(t, result.RankedIDs, 2)
}

func TestFilterValidIDs_DropsUnknownIDs(t *testing.T) {
	a := newPersona(1)
	b := newPersona(2)
	got := filterValidIDs([]int{2, 99, 1}, []*Persona{&a, &b})
	assert.Equal(t, []int{2, 1}, got)
}
